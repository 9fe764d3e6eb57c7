// Package dispatch classifies one-shot requests and executes them against
// the message store.
//
// Parse reads the query document with gqlparser (no schema involved) rather
// than matching substrings: it selects the operation, looks at its type
// (query, mutation or the "{" shorthand) and its first root field, and
// resolves that field's arguments. The result is one of three kinds:
//
//	KindListMessages   query { messages { ... } }
//	KindCreateMessage  mutation { createMessage(content: ..., author: ...) { ... } }
//	KindUnknown        anything else
//
// Arguments may reference request variables ($content) or be inline string
// literals. A variable that is not supplied takes its declared default. A
// value that is missing, null or not a string is treated as absent, which
// the store then rejects as a validation error.
//
// Dispatcher.Create is the only mutation path. It holds a mutex across the
// store append and the publisher calls so every Publisher sees messages in
// id order.
package dispatch
