// Package reconcile keeps a viewer's local copy of the board in sync with
// the server's push stream.
//
// A Reconciler moves through Disconnected, Connecting and Connected. After
// connecting it never asks for data; it waits for the server's snapshot:
//
//   - a snapshot push replaces the View, sorted newest-first by CreatedAt
//   - a messageAdded push is prepended as-is
//   - anything that does not decode is logged and ignored
//
// When the stream ends the Reconciler schedules exactly one reconnect after
// Options.Delay (3s by default). The attempt is skipped if the state is no
// longer Disconnected, and a successful connect cancels any pending attempt.
// Retries are unbounded. Setting MaxDelay above Delay switches to truncated
// exponential backoff (x2, ±25% jitter) that resets after a successful
// connect.
package reconcile
