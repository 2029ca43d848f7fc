package models

import "errors"

// Fatal request errors. Each rejects the whole request before any row is
// touched or any operation record is written.
var (
	ErrMalformedInput        = errors.New("malformed input")
	ErrUnsupportedFormat     = errors.New("unsupported import format")
	ErrUnsupportedOperation  = errors.New("unsupported operation kind")
	ErrUnsupportedEntityType = errors.New("unsupported entity type")
	ErrEmptyRequest          = errors.New("request contains no items")
)
