package crawler

import "errors"

var (
	// ErrFrontierStalled is returned when the frontier hands out a URL that
	// was already processed in this run, which happens when its terminal
	// status could not be stored. Stopping avoids an endless loop.
	ErrFrontierStalled = errors.New("frontier returned an already processed url")

	// ErrDownloadStatus is returned when a download answers with a non-2xx
	// status.
	ErrDownloadStatus = errors.New("unexpected download status")
)
