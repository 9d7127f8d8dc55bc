// Package main hosts the xlmerge CLI entrypoint and command graph.
//
// The Cobra command tree runs watch sessions and one-shot merges, prints the
// report sheet, the arrival journal and the run log, and scaffolds
// configuration and target workbooks. It centralizes configuration resolution and logging
// setup so subcommands stay declarative; the work itself lives in the
// internal packages.
package main
