// Package main provides the entry point for the safarnama CLI.
//
// safarnama crawls a single website, summarizes its pages with an
// OpenAI-compatible LLM endpoint and queries SearxNG instances through a
// priority and cooldown based backend selector.
//
// Usage:
//
//	safarnama init
//	safarnama start
//	safarnama search <query>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
