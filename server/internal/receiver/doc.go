// Package receiver serves the chirpwall.v1.Board gRPC service, a one-shot
// surface parallel to the HTTP gateway.
//
// The service is described by a hand-written grpc.ServiceDesc and carried
// with a JSON codec registered under the "json" content-subtype, so no
// generated code is involved. ListMessages returns the full history;
// CreateMessage goes through the same Board.Create path as HTTP, so every
// live viewer receives the new message. Missing content or author maps to
// codes.InvalidArgument.
//
// BoardClient is the matching client; it sets the content-subtype on every
// call.
package receiver
