// Package sanitize reduces an HTML page to what is worth sending to the
// summarizer: scripts, styles, meta and link elements and comments are
// dropped, SVG bodies and inline base64 images are replaced by short
// placeholders, and content matching the exclude patterns is removed.
package sanitize
