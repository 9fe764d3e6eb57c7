// Package config loads the viewer's YAML configuration: the server
// websocket URL, the one-shot HTTP URL, and the reconnect policy.
package config
