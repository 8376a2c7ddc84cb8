package photo

import "errors"

// Sentinel errors for the collision/sync engine. Callers match them with
// errors.Is; lower layers wrap their causes so the chain stays inspectable.
var (
	// ErrStoreUnavailable indicates the metadata store (or the remote
	// backup store) is unreachable or corrupt. It is never used to mask a
	// legitimate "no record found" result.
	ErrStoreUnavailable = errors.New("metadata store unavailable")

	// ErrConfirmationRequired is returned when a destructive operation is
	// attempted without explicit confirmation. No side effects occur.
	ErrConfirmationRequired = errors.New("confirmation required for destructive operation")

	// ErrResetInProgress is returned when a reset or upload is rejected
	// because another reset is already running for the same user.
	ErrResetInProgress = errors.New("reset already in progress for user")

	// ErrSyncTimeout indicates a remote operation exceeded its deadline.
	// Prior local state is left untouched.
	ErrSyncTimeout = errors.New("sync operation timed out")

	// ErrIntegrityViolation indicates validation found schema or row
	// inconsistencies in a local database.
	ErrIntegrityViolation = errors.New("database integrity violation")

	// ErrAdminDisabled is returned by the admin surface when the injected
	// capability does not permit destructive operations.
	ErrAdminDisabled = errors.New("administrative operations not permitted in this environment")
)

type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return "store unavailable: " + e.cause.Error()
}

func (e *unavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.cause}
}

// Unavailable wraps err so that errors.Is(err, ErrStoreUnavailable) holds
// while keeping the original cause in the chain. Returns nil for nil.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return &unavailableError{cause: err}
}
