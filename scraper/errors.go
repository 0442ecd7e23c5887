package scraper

import (
	"errors"
	"fmt"
)

// NavigationError is a transient failure to reach a page (timeout, network).
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ExtractionError means the expected page structure was absent, usually
// because the source UI changed.
type ExtractionError struct {
	Intent Intent
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extract %s: structure not found", e.Intent)
	}
	return fmt.Sprintf("extract %s: %v", e.Intent, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ExtractionFailure is returned by Extractor when a candidate could not be read.
type ExtractionFailure struct {
	ExternalID string
	URL        string
	Err        error
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("extract place %s: %v", e.ExternalID, e.Err)
}

func (e *ExtractionFailure) Unwrap() error { return e.Err }

// BrowserLaunchError means no browser could be started.
type BrowserLaunchError struct {
	Err error
}

func (e *BrowserLaunchError) Error() string {
	return fmt.Sprintf("launch browser: %v", e.Err)
}

func (e *BrowserLaunchError) Unwrap() error { return e.Err }

// IsNavigation reports whether err is (or wraps) a NavigationError.
func IsNavigation(err error) bool {
	var nav *NavigationError
	return errors.As(err, &nav)
}

// IsExtraction reports whether err is (or wraps) an ExtractionError or ExtractionFailure.
func IsExtraction(err error) bool {
	var ee *ExtractionError
	var ef *ExtractionFailure
	return errors.As(err, &ee) || errors.As(err, &ef)
}
