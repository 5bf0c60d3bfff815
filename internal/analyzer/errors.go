package analyzer

import (
	"errors"
	"fmt"
)

// ErrStructural is matched by every error that aborts the transformation of
// a method because its finally layout is not what a compiler produces.
var ErrStructural = errors.New("malformed finally structure")

// Sentinel errors for comparison with errors.Is. Each of them also matches
// ErrStructural.
var (
	ErrUnknownLabel         = fmt.Errorf("%w: unknown label", ErrStructural)
	ErrMissingSlotStore     = fmt.Errorf("%w: finally copy does not start with a slot store", ErrStructural)
	ErrUnterminatedFinally  = fmt.Errorf("%w: end of finally copy not found", ErrStructural)
	ErrMalformedCatchLayout = fmt.Errorf("%w: catch blocks do not line up with their handlers", ErrStructural)
	ErrNoReturnValue        = fmt.Errorf("%w: returned value requested in a void method", ErrStructural)
	ErrInvalidDescriptor    = fmt.Errorf("%w: invalid method descriptor", ErrStructural)
)

func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
