// Package boardclient is a small HTTP client for the one-shot board
// operations: listing all messages and creating one.
package boardclient
