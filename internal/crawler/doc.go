// Package crawler drives a single-site crawl over a persistent frontier.
//
// # Architecture
//
// The Controller repeatedly takes the shallowest to_visit row from the
// frontier, classifies it and stores a terminal status before taking the
// next one. The crawl is strictly sequential; the Fetcher's limiter keeps
// successive requests at least the configured delay apart.
//
// For each URL the checks run in this order:
//
//  1. URL exclusion patterns of the effective settings
//  2. binary suffix (downloaded or skipped, never fetched as a page)
//  3. robots.txt, when enabled
//  4. GET and media type check
//
// Accepted HTML pages are summarized and, depending on the settings,
// scanned for images and same-host links. Discovered links are enqueued
// one level deeper; the frontier ignores URLs it already knows.
//
// # Components
//
//   - Controller: the crawl loop
//   - Fetcher: paced GETs and file downloads
//   - Parser: extracts the title, links and images of a page
//   - RobotsPolicy: cached robots.txt decisions per host
//
// # Usage
//
//	fetcher := crawler.NewFetcher(httpClient, crawler.WithDelay(time.Second))
//	ctrl := crawler.NewController(cfg, db, fetcher, crawler.WithSummarizer(s))
//	session, err := ctrl.Run(ctx)
package crawler
