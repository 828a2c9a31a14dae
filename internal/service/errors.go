package service

import (
	"errors"
	"fmt"

	"github.com/emrgen/coa/internal/blob"
	"github.com/emrgen/coa/internal/store"
)

var (
	// ErrNotFound is returned when the addressed record does not exist.
	ErrNotFound = store.ErrNotFound
	// ErrDuplicate is returned when a unique field (COA code, email, slug) is taken.
	ErrDuplicate = store.ErrDuplicate
	// ErrMissingTable is returned when the database has not been migrated.
	ErrMissingTable = store.ErrMissingTable
	// ErrPermission is returned when the database refuses access.
	ErrPermission = store.ErrPermission
	// ErrValidation is returned before any store call when input is incomplete.
	ErrValidation = errors.New("validation failed")
	// ErrUnsupported is returned by managers that cannot perform an operation.
	ErrUnsupported = errors.New("operation not supported")
	// ErrInvalidFile is returned when an upload is empty or of the wrong type.
	ErrInvalidFile = errors.New("invalid file")
	// ErrAlreadySubscribed is the duplicate error of a newsletter subscription.
	ErrAlreadySubscribed = fmt.Errorf("%w: already subscribed", ErrDuplicate)
)

// Message turns an error into the text shown to an admin user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAlreadySubscribed):
		return "This email is already subscribed."
	case errors.Is(err, ErrDuplicate):
		return "A record with this identifier already exists."
	case errors.Is(err, ErrNotFound), errors.Is(err, blob.ErrNotFound):
		return "The requested record could not be found."
	case errors.Is(err, ErrMissingTable):
		return "The database is not set up yet. Run the migrations first."
	case errors.Is(err, ErrPermission):
		return "You do not have permission to perform this action."
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrInvalidFile):
		return err.Error()
	case errors.Is(err, ErrUnsupported):
		return "This action is not available with the current configuration."
	case errors.Is(err, blob.ErrExists):
		return "A file with this name already exists."
	default:
		return "Something went wrong. Please try again."
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
