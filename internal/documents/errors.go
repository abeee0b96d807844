package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrLinkNotFound = errors.New("control link not found")
	ErrInvalidInput = errors.New("invalid input")
)
