package chapters

import (
	"errors"
	"fmt"
)

var (
	// ErrNoChapters is wrapped by SegmentationError when the model returns an empty list.
	ErrNoChapters = errors.New("no chapters found")

	// ErrEmptyTranslation is wrapped by TranslationError when the model returns no text.
	ErrEmptyTranslation = errors.New("empty translation")
)

// SegmentationError reports a chapter identification call that failed or
// returned output that is not a chapter list.
type SegmentationError struct {
	Err error
}

func (e *SegmentationError) Error() string {
	return fmt.Sprintf("chapter segmentation failed: %v", e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }

// TranslationError reports a translation call that failed or returned nothing.
type TranslationError struct {
	Title string
	Err   error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation of %q failed: %v", e.Title, e.Err)
}

func (e *TranslationError) Unwrap() error { return e.Err }
