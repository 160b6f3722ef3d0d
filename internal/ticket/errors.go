package ticket

import (
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied is returned when the invoker lacks the staff role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConfiguration is returned when a configured category, role or
	// archive channel is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrExpired is returned for confirm or cancel actions whose close
	// confirmation no longer exists.
	ErrExpired = errors.New("close confirmation expired")
	// ErrConfirmationPending is returned for a close request while another is
	// pending or the ticket is already closing.
	ErrConfirmationPending = errors.New("close confirmation already pending")
	// ErrUnknownTicketType is returned for ticket kinds that are not defined.
	ErrUnknownTicketType = errors.New("unknown ticket type")
	// ErrInvalidName is returned when a channel name breaks platform rules.
	ErrInvalidName = errors.New("invalid channel name")
	// ErrIncompleteTicket is returned when a ticket channel was created but its
	// intro message with the close button could not be posted.
	ErrIncompleteTicket = errors.New("ticket created without controls")

	// ErrPlatform matches every PlatformError.
	ErrPlatform = errors.New("platform error")
	// ErrArchive matches every ArchiveError.
	ErrArchive = errors.New("transcript archive failed")
)

// PlatformError wraps a rejected platform call.
type PlatformError struct {
	Op  string
	Err error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error {
	return e.Err
}

func (e *PlatformError) Is(target error) bool {
	return target == ErrPlatform
}

// ArchiveError reports a transcript that could not be delivered. The ticket
// channel is kept when this error is returned.
type ArchiveError struct {
	Err error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("deliver transcript: %v", e.Err)
}

func (e *ArchiveError) Unwrap() error {
	return e.Err
}

func (e *ArchiveError) Is(target error) bool {
	return target == ErrArchive
}

func platformErr(op string, err error) error {
	return &PlatformError{Op: op, Err: err}
}

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
