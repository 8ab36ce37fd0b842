package extract

import "errors"

var (
	// ErrUnsupportedType means neither the declared MIME type nor the file
	// extension maps to a known format.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrEmptyContent means extraction succeeded mechanically but yielded no
	// readable text.
	ErrEmptyContent = errors.New("document contains no readable text")

	// ErrMalformedInput means the bytes do not parse as the resolved format.
	ErrMalformedInput = errors.New("malformed input")
)
