package backend

import "errors"

var (
	// ErrNoResult is returned when every round finished without an instance
	// answering the query.
	ErrNoResult = errors.New("no search backend returned a result")

	// ErrRateLimited is reported when an instance answers with HTTP 429.
	ErrRateLimited = errors.New("search backend rate limited")

	// ErrUnexpectedStatus is reported for a non-2xx answer other than 429.
	ErrUnexpectedStatus = errors.New("unexpected status from search backend")

	// ErrMalformedResponse is reported when the body is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed search backend response")

	// ErrEmptyInstanceURL is returned when adding an instance without a URL.
	ErrEmptyInstanceURL = errors.New("instance url must not be empty")
)
