// Package cmd implements the command-line interface for fittoken.
//
// This package provides the following commands:
//   - serve: Start the web endpoint that hands out Google Fit refresh tokens
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
// Configuration is read from the environment; flags override it.
package cmd
