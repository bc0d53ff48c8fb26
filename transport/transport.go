// Package transport defines two of the external collaborators spec.md §6
// treats as given: the durable-sync barrier and the local-user approval
// oracle. Message delivery is done by the gRPC clients and servers in
// package rpc; this package holds no message transport and no in-process
// fake of one.
package transport

import "context"

// AskUserFunc is the local-user approval oracle: given the composite
// image bytes and the list of requested source filenames, it blocks until
// the user answers. cmd/participant wires this to an interactive stdin
// prompt.
type AskUserFunc func(ctx context.Context, imageBytes []byte, filenames []string) bool

// Ask lets an AskUserFunc satisfy any interface that exposes a single
// Ask(ctx, imageBytes, filenames) bool method, so callers can hand a bare
// closure where one of those interfaces is expected.
func (f AskUserFunc) Ask(ctx context.Context, imageBytes []byte, filenames []string) bool {
	return f(ctx, imageBytes, filenames)
}

// Transport is everything a role needs from the outside world besides the
// wire RPCs themselves, which are dispatched through the clients in
// package rpc.
type Transport interface {
	// Fsync flushes all previously written files under the process's
	// control to stable storage. It is called after every durable log
	// write and after every composite image write, never before.
	Fsync() error
}
