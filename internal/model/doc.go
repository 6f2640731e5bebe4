// Package model defines the core data structures used throughout safarnama.
//
// This package contains the following main types:
//   - URLRecord: One frontier row, keyed by URL, with its crawl status
//   - EffectiveSettings / Overrides: Layered per-URL crawl policy
//   - Page: A fetched HTTP response classified by media type
//   - PageSummary / Tag: The normalized summarizer result
//   - BackendInstance: One candidate search backend with priority and cooldown
//   - CrawlSession / CrawlReport: Per-run state and the frontier report
//
// Models live in their own package so that database, crawler, backend and
// report can share them without import cycles.
package model
