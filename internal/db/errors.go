package db

import "errors"

var (
	// ErrNotFound is returned by LoadObject when no row matches.
	ErrNotFound = errors.New("object not found")

	// ErrNoUpdateFields is returned by UpdateObject when no field is listed for update.
	ErrNoUpdateFields = errors.New("no fields to update")

	// ErrInvalidCondition is returned for a condition without field or with an unsupported operator.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrEmptyCollection is returned when the collection reference is blank.
	ErrEmptyCollection = errors.New("collection name cannot be empty")
)
