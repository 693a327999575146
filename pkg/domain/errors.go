package domain

import "errors"

// Validation failures short-circuit a handler with a specific user-facing
// message instead of the generic apology.
var (
	ErrNotPDF            = errors.New("document is not a PDF")
	ErrNoExtractableText = errors.New("no extractable text in PDF")
)
