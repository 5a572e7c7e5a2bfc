// Package main is the entry point for the claude-checker CLI.
package main

import "github.com/gaamiranda/Claude-Checker/internal/cli"

func main() {
	cli.Execute()
}
