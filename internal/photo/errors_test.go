package photo_test

import (
	"errors"
	"fmt"
	"testing"

	"photovault/internal/photo"
)

func TestUnavailable(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if err := photo.Unavailable(nil); err != nil {
			t.Errorf("Unavailable(nil) = %v, want nil", err)
		}
	})

	t.Run("matches the sentinel and keeps the cause", func(t *testing.T) {
		cause := errors.New("disk read failed")
		err := photo.Unavailable(cause)

		if !errors.Is(err, photo.ErrStoreUnavailable) {
			t.Error("errors.Is(err, ErrStoreUnavailable) = false")
		}
		if !errors.Is(err, cause) {
			t.Error("errors.Is(err, cause) = false")
		}
	})

	t.Run("does not double wrap", func(t *testing.T) {
		inner := photo.Unavailable(errors.New("boom"))
		outer := photo.Unavailable(fmt.Errorf("opening store: %w", inner))

		if !errors.Is(outer, photo.ErrStoreUnavailable) {
			t.Error("errors.Is(outer, ErrStoreUnavailable) = false")
		}
		if outer.Error() != "opening store: "+inner.Error() {
			t.Errorf("Error() = %q, want pass-through of already wrapped error", outer.Error())
		}
	})
}
