// Package utils holds the small concurrency and decoding helpers shared by
// the ingest pipeline, the CLI and the HTTP server.
package utils
