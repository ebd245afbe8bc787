package errors

var (
	// Domain errors shared by services and handlers
	ErrGroupNotFound        = NotFound("group not found")
	ErrMessageNotFound      = NotFound("message not found")
	ErrNotificationNotFound = NotFound("notification not found")
	ErrUserNotFound         = NotFound("user not found")
	ErrNotGroupMember       = Forbidden("you are not a member of this group")
	ErrAdminRequired        = Forbidden("admin role required")
	ErrInvalidCredentials   = Unauthorized("invalid credentials")
	ErrInvalidToken         = Unauthorized("invalid token")
	ErrEmailTaken           = Conflict("email already exists", nil)
	ErrDuplicateMembership  = Conflict("duplicate active membership", nil)
	ErrReceiverInactive     = Validation("receiverId", "receiver not found or inactive")
	ErrSendToSelf           = Validation("receiverId", "cannot send a message to yourself")
	ErrSenderInactive       = Forbidden("account is inactive")
)
