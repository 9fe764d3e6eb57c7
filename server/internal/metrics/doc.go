// Package metrics counts board activity and exposes it in the Prometheus
// text format.
//
// Metrics implements the dispatcher's publisher and operation observer
// hooks and the ws hub's connection observer, so one instance is shared by
// every component. ServeHTTP encodes the families with expfmt; no client
// library registry is involved.
package metrics
