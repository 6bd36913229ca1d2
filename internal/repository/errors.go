package repository

import "errors"

var (
	// ErrBrowserInit means no usable browser session could be provisioned.
	ErrBrowserInit = errors.New("browser initialization failed")
	// ErrContainerNotFound means the results container never appeared.
	ErrContainerNotFound = errors.New("results container not found")
	// ErrExtractionSkip marks a single listing that was dropped.
	ErrExtractionSkip = errors.New("listing skipped")
	// ErrPageSkip marks a result page that was abandoned.
	ErrPageSkip = errors.New("page skipped")
	// ErrEndOfResults is returned when a page has no listing cards left.
	ErrEndOfResults = errors.New("end of results")
	// ErrNoNextPage is returned when no "next page" control can be found.
	ErrNoNextPage = errors.New("next page control not found")
	// ErrSelectorNotFound is returned by a session or element when nothing matched in time.
	ErrSelectorNotFound = errors.New("selector matched no element")
	// ErrUnsupportedSelector is returned when a backend cannot evaluate a selector kind.
	ErrUnsupportedSelector = errors.New("selector kind not supported")

	ErrQueueEmpty  = errors.New("crawl queue is empty")
	ErrRunNotFound = errors.New("crawl run not found")
	ErrRunLocked   = errors.New("another crawl run is in progress")
)
