// Package command defines the closed set of account commands and the
// dispatcher that routes each command to its handler.
//
// Commands are immutable value objects. Dispatch is a type switch over the
// command variants, so an unhandled command is a programming error surfaced
// as ErrUnregisteredCommand rather than a business condition. Handlers run
// one load-apply-save unit of work per command and propagate domain and
// concurrency errors unchanged; retry policy is a caller decision.
package command
