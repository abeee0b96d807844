package controls

import "errors"

var (
	ErrNotFound         = errors.New("control not found")
	ErrQuestionNotFound = errors.New("question not found")
)
