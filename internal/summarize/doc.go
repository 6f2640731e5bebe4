// Package summarize asks an OpenAI-compatible chat completion endpoint for
// a short summary and a tag list of a sanitized page.
//
// The model is expected to answer with a JSON object, optionally wrapped in
// a ```json fenced block:
//
//	{"summary": "...", "tags": ["travel", {"name": "history"}]}
//
// Requests that time out are retried a fixed number of times with a short
// pause. Any other failure, an explicit error from the endpoint, or an
// answer that does not parse ends the attempt with an empty summary.
package summarize
