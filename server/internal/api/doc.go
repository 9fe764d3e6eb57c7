// Package api implements the HTTP gateway of chirpwall-server.
//
// New returns a Gateway (an http.Handler) that serves:
//
//	OPTIONS  any path          200, empty body (CORS preflight)
//	POST     /graphql          one-shot list/create, JSON in and out
//	GET      /graphql          websocket upgrade, handed to the ws hub
//	GET      /healthz          status plus message and connection counts
//	GET      /metrics          Prometheus text exposition, if configured
//	anything else              404 {"errors":[{"message":"Not found"}]}
//
// A POST whose body is not JSON or has an empty query gets 400 with the
// reason in the errors list; a body over MaxBodyBytes gets 413. Every other
// POST gets 200, with dispatcher errors reported inside the body.
//
// Every response carries the CORS headers for the configured origin, with
// credentials allowed. Requests are logged after completion with method,
// path, status, size and duration captured by httpsnoop.
//
// The service path is configurable; routing uses gorilla/mux.
package api
