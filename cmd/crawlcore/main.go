// Package main provides the entry point for the crawlcore CLI.
//
// crawlcore is the decision core of a focused web crawler. Given fetched
// pages, it decides which outgoing links are worth crawling, avoids crawler
// traps and near-duplicate content, and keeps checkpointed crawl statistics.
//
// Usage:
//
//	crawlcore process --url <url> page.html
//	crawlcore replay fetch-log.jsonl
//	crawlcore report
//
// See --help for all available options.
package main

// main is the entry point for crawlcore.
func main() {
	Execute()
}
