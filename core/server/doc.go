// Package server holds the HTTP server configuration.
//
// While the start command handles the server startup, this package defines
// the settings it reads: the listen port, the API key protecting every
// route, whether the status surface is served at all, and how long a
// graceful shutdown may take.
//
// # Usage
//
// This package is embedded by core/config and consumed by cmd/start.go.
package server
