package store

import "errors"

var (
	ErrInvalidSort    = errors.New("invalid sort column")
	ErrInvalidProduct = errors.New("invalid product")
)
