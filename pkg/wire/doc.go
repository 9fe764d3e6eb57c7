// Package wire defines the JSON shapes shared by chirpwall-server and its
// clients.
//
// One-shot exchange (POST to the service path):
//
//	request:  {"query": "...", "variables": {...}}
//	response: {"data": {"messages": [Message, ...]}}
//	          {"data": {"createMessage": Message}}
//	          {"errors": [{"message": "..."}]}
//
// Persistent connection pushes:
//
//	{"type": "data", "payload": {"messages": [Message, ...]}}   snapshot, once on connect
//	{"type": "data", "payload": {"messageAdded": Message}}      incremental, per create
//
// Message: {"id": "1", "content": "...", "author": "...", "createdAt": RFC3339}.
package wire
