package types

import "errors"

// Record store errors.
var (
	ErrAllocationExhausted = errors.New("all ring ids are in use")
	ErrNotFound            = errors.New("ring not found")
	ErrShape               = errors.New("unexpected container shape")
	ErrMalformedRecord     = errors.New("malformed ring record")
	ErrNotOwner            = errors.New("caller may not modify this document")
	ErrUnsupportedVersion  = errors.New("unsupported data version")
	ErrDuplicateID         = errors.New("duplicate ring id")
	ErrUnknownField        = errors.New("unknown ring field")
	ErrInvalidValue        = errors.New("invalid field value")
)

// Host store errors.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrBackendDetached  = errors.New("backend is detached")
	ErrAlreadyAttached  = errors.New("backend is already attached")
	ErrInvalidID        = errors.New("invalid document ID")
	ErrInvalidName      = errors.New("invalid document name")
)
