// Package proxy implements `speak serve`: a small HTTP server that accepts
// the same request body as the speech service and forwards it upstream with
// a token only the server knows.
package proxy
