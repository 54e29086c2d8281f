// Package main provides the entry point for the crawler CLI.
//
// Usage:
//
//	crawler https://example.com
//	crawler --config crawler.yaml
//	crawler runs
package main

func main() {
	Execute()
}
