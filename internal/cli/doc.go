// Package cli implements the command-line interface for local-events.
//
// The cli package provides the Cobra-based CLI with support for aggregated
// event searches, provider health checks, formatting output (text/JSON),
// sorting (by date/title/source), and managing the scraped venue snapshot.
// It wires configuration, the provider adapters, the expansion and merge
// stages, and the metrics endpoint into one pipeline per invocation.
package cli
