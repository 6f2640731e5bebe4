package model

import (
	"regexp"
	"slices"
	"strings"
)

// EffectiveSettings is the crawl policy for one (URL, depth) pair.
// It is computed on demand by the policy package and never persisted.
type EffectiveSettings struct {
	// DownloadBinaries enables downloading every binary URL and, when
	// FindImages is set, every discovered image.
	DownloadBinaries bool

	// DownloadSpecificBinaries lists extensions (".pdf", ".zip") that are
	// downloaded even when DownloadBinaries is false.
	DownloadSpecificBinaries []string

	// FindImages enables <img> extraction on HTML pages.
	FindImages bool

	// ExcludeURLPatterns are matched against the full URL; the first match
	// excludes the URL.
	ExcludeURLPatterns []*regexp.Regexp

	// ExcludeContentPatterns are removed from sanitized HTML before it is
	// sent to the summarizer.
	ExcludeContentPatterns []*regexp.Regexp
}

// MatchExcludedURL returns the first exclude pattern matching rawURL.
// The second result is false when no pattern matches.
func (s EffectiveSettings) MatchExcludedURL(rawURL string) (string, bool) {
	for _, re := range s.ExcludeURLPatterns {
		if re.MatchString(rawURL) {
			return re.String(), true
		}
	}
	return "", false
}

// AllowsDownload reports whether a binary URL should be downloaded rather
// than skipped: either all binaries are enabled or the URL ends with one of
// the specifically allowed extensions.
func (s EffectiveSettings) AllowsDownload(rawURL string) bool {
	if s.DownloadBinaries {
		return true
	}
	lower := strings.ToLower(rawURL)
	return slices.ContainsFunc(s.DownloadSpecificBinaries, func(ext string) bool {
		return ext != "" && strings.HasSuffix(lower, strings.ToLower(ext))
	})
}

// Overrides is one settings layer (a depth entry or a URL rule).
// Nil fields are absent from the layer and leave lower layers untouched;
// a non-nil empty list explicitly clears the lower value.
type Overrides struct {
	DownloadBinaries         *bool    `yaml:"download_binaries,omitempty"`
	DownloadSpecificBinaries []string `yaml:"download_specific_binaries,omitempty"`
	FindImages               *bool    `yaml:"find_images,omitempty"`
	ExcludeURLPatterns       []string `yaml:"exclude_url_patterns,omitempty"`
	ExcludeContentPatterns   []string `yaml:"exclude_content_patterns,omitempty"`

	// compiled forms, filled by Compile
	excludeURL     []*regexp.Regexp
	excludeContent []*regexp.Regexp
}

// Compile compiles the pattern lists of the layer. Content patterns are
// case-insensitive.
func (o *Overrides) Compile() error {
	var err error
	if o.ExcludeURLPatterns != nil {
		if o.excludeURL, err = CompilePatterns(o.ExcludeURLPatterns, false); err != nil {
			return err
		}
	}
	if o.ExcludeContentPatterns != nil {
		if o.excludeContent, err = CompilePatterns(o.ExcludeContentPatterns, true); err != nil {
			return err
		}
	}
	return nil
}

// ApplyTo shallow-overwrites the keys present in o onto s.
func (o *Overrides) ApplyTo(s *EffectiveSettings) {
	if o == nil {
		return
	}
	if o.DownloadBinaries != nil {
		s.DownloadBinaries = *o.DownloadBinaries
	}
	if o.DownloadSpecificBinaries != nil {
		s.DownloadSpecificBinaries = o.DownloadSpecificBinaries
	}
	if o.FindImages != nil {
		s.FindImages = *o.FindImages
	}
	if o.ExcludeURLPatterns != nil {
		s.ExcludeURLPatterns = o.excludeURL
		if s.ExcludeURLPatterns == nil {
			s.ExcludeURLPatterns = mustCompile(o.ExcludeURLPatterns, false)
		}
	}
	if o.ExcludeContentPatterns != nil {
		s.ExcludeContentPatterns = o.excludeContent
		if s.ExcludeContentPatterns == nil {
			s.ExcludeContentPatterns = mustCompile(o.ExcludeContentPatterns, true)
		}
	}
}

// CompilePatterns compiles regular expressions in order.
func CompilePatterns(patterns []string, caseInsensitive bool) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		expr := p
		if caseInsensitive {
			expr = "(?i)" + p
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, &PatternError{Pattern: p, Err: err}
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// mustCompile is used for layers built in code without calling Compile.
// Invalid patterns are skipped.
func mustCompile(patterns []string, caseInsensitive bool) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := CompilePatterns([]string{p}, caseInsensitive)
		if err != nil {
			continue
		}
		compiled = append(compiled, re...)
	}
	return compiled
}

// PatternError reports a regular expression that failed to compile.
type PatternError struct {
	Pattern string
	Err     error
}

// Error implements error.
func (e *PatternError) Error() string {
	return "invalid pattern " + strings.TrimSpace(e.Pattern) + ": " + e.Err.Error()
}

// Unwrap returns the underlying regexp error.
func (e *PatternError) Unwrap() error {
	return e.Err
}

// Bool returns a pointer to b, for building Overrides in code.
func Bool(b bool) *bool {
	return &b
}

// URLRule is one URL-scoped settings layer. Pattern is both the exact key
// and the regular expression tried against candidate URLs.
type URLRule struct {
	Pattern   string
	Overrides Overrides

	re *regexp.Regexp
}

// Compile compiles the rule pattern and its override lists.
func (r *URLRule) Compile() error {
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return &PatternError{Pattern: r.Pattern, Err: err}
	}
	r.re = re
	return r.Overrides.Compile()
}

// Matches reports whether the rule pattern matches anywhere in rawURL.
// A rule whose pattern does not compile never matches.
func (r *URLRule) Matches(rawURL string) bool {
	if r.re == nil {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return false
		}
		r.re = re
	}
	return r.re.MatchString(rawURL)
}
