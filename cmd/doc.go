// Package cmd implements the command-line interface for agendahook.
//
// This package provides the following commands:
//   - run: Run the digest pipeline once and print the outcome
//   - serve: Start the HTTP trigger server, optionally with a cron schedule
//   - auth: Authorize with Google in the browser and store the token
//   - preview: Print tomorrow's digest without posting it
//   - version: Display version information
package cmd
