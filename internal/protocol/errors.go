package protocol

import (
	"errors"
	"fmt"
)

// ErrNeedMoreData means the buffer does not yet hold a whole frame. Nothing was consumed.
var ErrNeedMoreData = errors.New("need more data")

// ErrMalformed is a structural decode failure inside a complete frame.
var ErrMalformed = errors.New("malformed frame")

// ErrFrameTooLarge is returned when a length prefix exceeds the configured limit.
var ErrFrameTooLarge = errors.New("frame too large")

// UnknownTypeError reports a frame whose tag is not recognised. The frame was
// consumed whole, so the stream stays in sync and decoding can continue.
type UnknownTypeError struct {
	Tag string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Tag)
}

// IsFatal reports whether err should end the connection it came from.
func IsFatal(err error) bool {
	if err == nil || errors.Is(err, ErrNeedMoreData) {
		return false
	}
	var unknown *UnknownTypeError
	return !errors.As(err, &unknown)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}
