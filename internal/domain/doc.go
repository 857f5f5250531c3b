// Package domain defines the core value types for the traffic ingestion service.
//
// Types in this package are value objects with no I/O, no warehouse
// dependencies, and no HTTP concerns. They are the shared language between
// the Similarweb fetcher, the warehouse backends, and the API handlers.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Constants belong here
package domain
