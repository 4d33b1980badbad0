package appointment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the appointment id does not resolve.
	ErrNotFound = errors.New("appointment not found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid appointment")

	ErrUnknownPatient  = fmt.Errorf("%w: unknown patient", ErrInvalid)
	ErrUnknownDoctor   = fmt.Errorf("%w: unknown doctor", ErrInvalid)
	ErrUnknownMedicine = fmt.Errorf("%w: unknown medicine", ErrInvalid)
	ErrIDMismatch      = fmt.Errorf("%w: body id does not match path id", ErrInvalid)
)
