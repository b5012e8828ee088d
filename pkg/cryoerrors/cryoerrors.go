// Package cryoerrors defines the error taxonomy shared by every engine
// package: a chunk failure, a retryable RPC hiccup and a malformed query
// all need to be told apart by the coordinator without string matching.
package cryoerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags an error with the taxonomy bucket the coordinator and report
// use to decide whether to keep going, retry, or abort the whole run.
type Kind string

const (
	KindInvalidQuery       Kind = "invalid_query"
	KindNetworkUnavailable Kind = "network_unavailable"
	KindRpcTransient       Kind = "rpc_transient"
	KindRpcFatal           Kind = "rpc_fatal"
	KindRpcExhausted       Kind = "rpc_exhausted"
	KindDecodeError        Kind = "decode_error"
	KindIoError            Kind = "io_error"
	KindCancelled          Kind = "cancelled"
)

// TaggedError is satisfied by every error type in this package, so callers
// can recover the Kind without a type switch per concrete type.
type TaggedError interface {
	error
	Kind() Kind
}

type baseError struct {
	kind  Kind
	msg   string
	cause error
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.cause)
	}
	return e.msg
}

func (e *baseError) Kind() Kind { return e.kind }

func (e *baseError) Unwrap() error { return e.cause }

func newf(kind Kind, cause error, format string, args ...any) *baseError {
	return &baseError{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

// InvalidQuery reports a malformed block spec, unknown dataset, or
// conflicting flags. Fatal at construction; never recovered.
type InvalidQuery struct{ *baseError }

func NewInvalidQuery(cause error, format string, args ...any) *InvalidQuery {
	return &InvalidQuery{newf(KindInvalidQuery, cause, format, args...)}
}

// NetworkUnavailable reports that the initial eth_chainId / connectivity
// check failed. Fatal.
type NetworkUnavailable struct{ *baseError }

func NewNetworkUnavailable(cause error, format string, args ...any) *NetworkUnavailable {
	return &NetworkUnavailable{newf(KindNetworkUnavailable, cause, format, args...)}
}

// RpcTransient is retryable; it is consumed inside the RPC client and never
// surfaces to a caller unless the retry budget is exhausted.
type RpcTransient struct{ *baseError }

func NewRpcTransient(cause error, format string, args ...any) *RpcTransient {
	return &RpcTransient{newf(KindRpcTransient, cause, format, args...)}
}

// RpcFatal reports a bad request, missing method, or auth failure. Surfaces
// as a chunk failure.
type RpcFatal struct{ *baseError }

func NewRpcFatal(cause error, format string, args ...any) *RpcFatal {
	return &RpcFatal{newf(KindRpcFatal, cause, format, args...)}
}

// RpcExhausted reports that a RpcTransient error survived the full retry
// budget for a call.
type RpcExhausted struct{ *baseError }

func NewRpcExhausted(cause error, format string, args ...any) *RpcExhausted {
	return &RpcExhausted{newf(KindRpcExhausted, cause, format, args...)}
}

// DecodeError reports a response schema mismatch; logged with the raw
// payload's identifier (block number, tx hash) by the caller.
type DecodeError struct{ *baseError }

func NewDecodeError(cause error, format string, args ...any) *DecodeError {
	return &DecodeError{newf(KindDecodeError, cause, format, args...)}
}

// IoError reports a writer or filesystem failure for one chunk.
type IoError struct{ *baseError }

func NewIoError(cause error, format string, args ...any) *IoError {
	return &IoError{newf(KindIoError, cause, format, args...)}
}

// Cancelled reports that the caller's context was cancelled mid-call.
type Cancelled struct{ *baseError }

func NewCancelled(cause error) *Cancelled {
	return &Cancelled{newf(KindCancelled, cause, "cancelled")}
}

// KindOf recovers the Kind of any TaggedError in err's chain, or "" if none
// is found.
func KindOf(err error) Kind {
	var tagged TaggedError
	for e := err; e != nil; e = errors.Unwrap(e) {
		if t, ok := e.(TaggedError); ok {
			tagged = t
			break
		}
	}
	if tagged == nil {
		return ""
	}
	return tagged.Kind()
}

// IsFatal reports whether err's Kind should abort the whole run rather than
// just the chunk that produced it.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindInvalidQuery, KindNetworkUnavailable:
		return true
	default:
		return false
	}
}
