package model

import "errors"

// ErrFieldDoesNotExist is returned when a field name is not declared by the model schema.
var ErrFieldDoesNotExist = errors.New("field does not exist")
