package domain

import "errors"

var (
	ErrFieldMissing = errors.New("required field missing")
	ErrFieldInvalid = errors.New("field value invalid")
)
