package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// ErrNilACFatalLogMsg is used if app or cfg var pointer is nil.
	ErrNilACFatalLogMsg = "app or cfg is nil"

	// MsgUnauthorized is sent when no user is logged in.
	MsgUnauthorized = "unauthorized"

	// MsgForbidden is sent when the current user lacks a role.
	MsgForbidden = "forbidden"

	// MsgInternal is sent for unexpected failures.
	MsgInternal = "internal server error"
)
