package core

import "errors"

var (
	ErrObjectNotFound   = errors.New("object not found")
	ErrDuplicateContent = errors.New("duplicate content")
)
