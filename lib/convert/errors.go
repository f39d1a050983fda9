package convert

import "errors"

var (
	// ErrConversion wraps every failure reported by a conversion worker.
	ErrConversion        = errors.New("conversion error")
	ErrUnknownFormat     = errors.New("unknown image format")
	ErrUnsupportedOutput = errors.New("output format not supported")
	ErrEmptyInput        = errors.New("empty input")
	ErrImageTooLarge     = errors.New("image dimensions too large")
)
