// Package remote implements the reconciliation record types for a
// Salesforce-style REST API.
//
// # Client
//
// Client wraps a resty client configured with bearer authentication, request
// timeouts and retries for throttled (429) or failed (5xx) idempotent requests.
// Every attempt waits on a token bucket limiter first. Object descriptions are
// fetched once per type; concurrent callers share the same request.
//
// Endpoints used, relative to the API path:
//
//	GET    /query?q=SOQL               paginated through nextRecordsUrl
//	GET    /sobjects/{type}/{id}
//	POST   /sobjects/{type}
//	PATCH  /sobjects/{type}/{id}
//	DELETE /sobjects/{type}/{id}
//	GET    /sobjects/{type}/describe
//
// # Errors
//
// Responses are classified for the engine: 404 is a not-found error, other
// 4xx responses (DUPLICATE_VALUE, REQUIRED_FIELD_MISSING, ...) are persistence
// errors and 401, 408, 429, 5xx and network failures are transient.
//
// # Sync marker
//
// Updates and MarkSynced write Config.SyncMarkerField slightly ahead of the
// current time so the write itself is recognised as an engine write on the
// next poll. Every mapped remote type needs that field.
package remote
