package productdb

import (
	"errors"
	"fmt"
)

// DecodeError describes a structural fault found while decoding a single
// product section. Offset is relative to the start of that section, not to
// the database file.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("product section: %s (offset %d)", e.Reason, e.Offset)
}

// AsDecodeError unwraps err as a *DecodeError.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
