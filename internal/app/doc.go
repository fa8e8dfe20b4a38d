// Package app contains the core application logic. It owns the container
// lifecycle for one invocation: loading data, converting between formats
// and dumping statement listings, decoupled from any specific entrypoint
// like a CLI.
package app
