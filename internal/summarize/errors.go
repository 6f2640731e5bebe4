package summarize

import "errors"

var (
	// ErrNoChoices is returned when the completion has no choices, which is
	// also how an {"error": ...} answer with status 200 decodes.
	ErrNoChoices = errors.New("llm response has no choices")

	// ErrMalformedContent is returned when the completion content is not
	// the expected JSON object.
	ErrMalformedContent = errors.New("llm response content is not a summary object")
)
