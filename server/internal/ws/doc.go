// Package ws implements the persistent push channel of chirpwall-server.
//
// Registry holds the live connections. Hub owns a Registry and does two
// things with it:
//
//   - Attach registers a connection and enqueues a snapshot of the whole
//     board as its first push.
//   - OnMessageCreated enqueues an incremental push on every registered
//     connection.
//
// Both run under the hub mutex, so a connection never sees an incremental
// push before its snapshot. The hub also remembers the highest message id
// in each snapshot and skips incremental pushes at or below it; a message
// created while a viewer was joining arrives exactly once.
//
// Each connection has a bounded queue drained by its own writer goroutine.
// Send never blocks: a full queue (ErrSlowConsumer) or a closed connection
// (ErrConnClosed) drops that connection and leaves the others untouched.
//
// Push format:
//
//	{"type":"data","payload":{"messages":[...]}}        snapshot
//	{"type":"data","payload":{"messageAdded":{...}}}    incremental
//
// The upgrader accepts every origin; the gateway applies CORS.
package ws
