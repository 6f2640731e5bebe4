// Package pipeline runs the stages of a crawl run in sequence.
//
// A run is a crawl followed by its outputs: the sitemap and, optionally, a
// report file. Each stage is a Step that receives the run's
// model.CrawlSession and may record its results there. The pipeline checks
// for cancellation between steps and either stops at the first failing
// step or, with WithContinueOnError, records the failure and goes on.
package pipeline
