// Package tui fills a form interactively in the terminal using survey
// prompts and serializes the answers.
package tui
