package services

import (
	"strings"
	"unicode/utf8"

	apperrors "messaging-service/pkg/errors"

	"golang.org/x/text/unicode/norm"
)

// Field limits, counted in runes after normalization.
const (
	MaxGroupNameLength   = 100
	MaxDescriptionLength = 500
	MaxMessageLength     = 1000

	previewLength = 100
)

// normalize trims surrounding whitespace and composes the text to NFC so a
// length limit means the same thing regardless of how the client encoded it.
func normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func validateRequired(field, value string, max int) (string, error) {
	v := normalize(value)
	if v == "" {
		return "", apperrors.Validation(field, field+" is required")
	}
	if utf8.RuneCountInString(v) > max {
		return "", apperrors.Validation(field, field+" exceeds maximum length")
	}
	return v, nil
}

func validateGroupName(name string) (string, error) {
	return validateRequired("name", name, MaxGroupNameLength)
}

// validateDescription returns nil for an absent or blank description.
func validateDescription(desc *string) (*string, error) {
	if desc == nil {
		return nil, nil
	}
	v := normalize(*desc)
	if v == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(v) > MaxDescriptionLength {
		return nil, apperrors.Validation("description", "description exceeds maximum length")
	}
	return &v, nil
}

func validateBody(body string) (string, error) {
	return validateRequired("body", body, MaxMessageLength)
}

// normalizeMemberIDs trims and dedupes ids preserving first-seen order.
// Blank entries make the list malformed.
func normalizeMemberIDs(ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, apperrors.Validation("memberIds", "memberIds contains an empty id")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}

func preview(body string) string {
	if utf8.RuneCountInString(body) <= previewLength {
		return body
	}
	r := []rune(body)
	return string(r[:previewLength]) + "..."
}
