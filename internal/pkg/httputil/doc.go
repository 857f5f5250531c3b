// Package httputil provides shared HTTP response utilities for handlers.
//
// Every handler should use these helpers instead of writing raw
// http.ResponseWriter calls, so JSON formatting and the error envelope stay
// consistent across endpoints.
package httputil
