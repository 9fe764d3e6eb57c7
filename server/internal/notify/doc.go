// Package notify forwards created messages to webhooks (Slack, Teams, or a
// generic HTTP endpoint). Delivery is asynchronous and best effort.
package notify
