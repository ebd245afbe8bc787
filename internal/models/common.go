package models

// State is the single visibility flag shared by every entity. Nothing in
// this service is hard-deleted; hiding a row means moving it out of
// StateActive.
type State string

const (
	StateActive   State = "active"
	StateInactive State = "inactive" // deactivated group, ended membership, disabled user
	StateDeleted  State = "deleted"  // soft-deleted message
)

func (s State) Visible() bool {
	return s == StateActive
}

// Pagination defaults
const (
	DefaultThreadPageSize       = 50
	DefaultGroupMessagePageSize = 50
	DefaultGroupListPageSize    = 10
	DefaultNotificationPageSize = 20
	MaxPageSize                 = 100
	MaxPageNumber               = 1_000_000
)

// Page is a 1-based page request.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps page and size into range. An unset or non-positive size
// falls back to def; an oversized one is cut to MaxPageSize.
func NewPage(number, size, def int) Page {
	if number < 1 {
		number = 1
	}
	if number > MaxPageNumber {
		number = MaxPageNumber
	}
	switch {
	case size <= 0:
		size = def
	case size > MaxPageSize:
		size = MaxPageSize
	}
	return Page{Number: number, Size: size}
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
