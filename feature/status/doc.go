// Package status exposes the reconciliation engine over HTTP.
//
// It lists the registered mappings with their stored windows, runs a cycle
// on demand and resets a mapping's window. Manual cycles go through the
// same Runner as the polling loop, so a request arriving while a scheduled
// cycle runs waits for that cycle and returns its report.
//
// Routes:
//
//	GET    /mappings
//	GET    /mappings/:name
//	POST   /mappings/:name/sync
//	DELETE /mappings/:name/window
package status
