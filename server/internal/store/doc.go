// Package store holds the board's messages in memory. It is append-only:
// messages are never updated or removed, and ids are dense decimal integers
// handed out in creation order.
package store
