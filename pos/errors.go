package pos

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/skyregion/model"
)

// Kinds of FormatError. Use errors.Is against these.
var (
	ErrWrongArgumentCount = errors.New("wrong argument count")
	ErrUnrecognizedShape  = errors.New("unrecognized shape")
	ErrOddCoordinateCount = errors.New("odd coordinate count")
	ErrTooFewVertices     = errors.New("too few vertices")
	ErrNonNumericToken    = errors.New("non-numeric token")
)

// FormatError reports a malformed POS string.
type FormatError struct {
	// Kind is one of the Err* sentinels above.
	Kind     error
	Shape    model.Shape
	Token    string
	Expected int
	Got      int
	Input    string
}

func (e *FormatError) Error() string {
	switch e.Kind {
	case ErrWrongArgumentCount:
		return fmt.Sprintf("%s requires %d numbers but got %d in %q", e.Shape, e.Expected, e.Got, e.Input)
	case ErrUnrecognizedShape:
		return fmt.Sprintf("unrecognized shape %q in POS string %q", e.Token, e.Input)
	case ErrOddCoordinateCount:
		return fmt.Sprintf("%s requires an even number of floats but got %d in %q", e.Shape, e.Got, e.Input)
	case ErrTooFewVertices:
		return fmt.Sprintf("%s requires at least 3 coordinates, got %d in %q", e.Shape, e.Got, e.Input)
	case ErrNonNumericToken:
		return fmt.Sprintf("non-numeric token %q in POS string %q", e.Token, e.Input)
	default:
		return fmt.Sprintf("invalid POS string %q", e.Input)
	}
}

func (e *FormatError) Unwrap() error { return e.Kind }
