// Copyright © 2018 One Concern

// Package rpc exposes storage handlers as named methods of a service.
//
// A service executes one call at a time. Every call gets a fresh stopwatch,
// carried by its context, so that handlers may report the performance counter
// of the current call with meter.Performance.
//
// Call outcomes follow a result envelope: either {"Ok": value}, or an error
// which is "InvalidCanister" when the target service does not exist, and
// {"CanisterError": {"message": "..."}} when the call itself failed.
package rpc

import (
	"context"
	"fmt"

	"github.com/oneconcern/stablebench/pkg/errors"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrArgs is returned when call arguments do not match the handler
	ErrArgs = errors.New("invalid arguments")

	// ErrDuplicateMethod is returned when registering a method twice
	ErrDuplicateMethod = errors.New("method already registered")
)

// Kind of method
type Kind uint8

// Method kinds. Query methods are not expected to change the state of a service.
const (
	Update Kind = iota + 1
	Query
)

func (k Kind) String() string {
	switch k {
	case Update:
		return "update"
	case Query:
		return "query"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the kind as a string
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Handler serves a method call
type Handler func(ctx context.Context, args Args) (interface{}, error)

// Method of a service
type Method struct {
	Name    string  `json:"name"`
	Kind    Kind    `json:"kind"`
	Handler Handler `json:"-"`
}

// Args are the positional JSON arguments of a call
type Args []jsoniter.RawMessage

// ParseArgs decodes a JSON array of arguments. An empty input means no argument.
func ParseArgs(raw []byte) (Args, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var args Args
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, ErrArgs.Wrap(err)
	}
	return args, nil
}

// MustArgs encodes values as call arguments, panicking when some value cannot be encoded
func MustArgs(values ...interface{}) Args {
	args := make(Args, 0, len(values))
	for _, v := range values {
		buf, err := json.Marshal(v)
		if err != nil {
			panic(err)
		}
		args = append(args, buf)
	}
	return args
}

// Decode arguments into destinations, in order. The number of arguments must match.
func (a Args) Decode(dest ...interface{}) error {
	if len(a) != len(dest) {
		return ErrArgs.Wrapf("expected %d arguments, got %d", len(dest), len(a))
	}
	for i, d := range dest {
		if err := json.Unmarshal(a[i], d); err != nil {
			return ErrArgs.Wrapf("argument %d: %v", i, err)
		}
	}
	return nil
}

// ErrorKind tells apart errors returned to callers
type ErrorKind uint8

// Error kinds
const (
	InvalidCanister ErrorKind = iota + 1
	CanisterError
)

// CallError is the error part of a call result
type CallError struct {
	Kind    ErrorKind
	Message string
}

func (e *CallError) Error() string {
	if e.Kind == InvalidCanister {
		return "invalid canister"
	}
	return e.Message
}

// MarshalJSON renders the error variant
func (e CallError) MarshalJSON() ([]byte, error) {
	if e.Kind == InvalidCanister {
		return json.Marshal("InvalidCanister")
	}
	return json.Marshal(map[string]interface{}{
		"CanisterError": map[string]string{"message": e.Message},
	})
}

// UnmarshalJSON decodes the error variant
func (e *CallError) UnmarshalJSON(buf []byte) error {
	var s string
	if err := json.Unmarshal(buf, &s); err == nil {
		if s != "InvalidCanister" {
			return fmt.Errorf("unknown error variant %q", s)
		}
		*e = CallError{Kind: InvalidCanister}
		return nil
	}
	var v struct {
		CanisterError *struct {
			Message string `json:"message"`
		}
	}
	if err := json.Unmarshal(buf, &v); err != nil {
		return err
	}
	if v.CanisterError == nil {
		return fmt.Errorf("unknown error variant %s", string(buf))
	}
	*e = CallError{Kind: CanisterError, Message: v.CanisterError.Message}
	return nil
}

// Result of a call
type Result struct {
	Ok  interface{}
	Err *CallError

	// Instructions counted during the call
	Instructions uint64
}

// MarshalJSON renders the result envelope
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(map[string]interface{}{"Err": r.Err})
	}
	return json.Marshal(map[string]interface{}{"Ok": r.Ok})
}

// UnmarshalJSON decodes a result envelope. Ok values are decoded as generic JSON values.
func (r *Result) UnmarshalJSON(buf []byte) error {
	var v struct {
		Ok  *jsoniter.RawMessage
		Err *CallError
	}
	if err := json.Unmarshal(buf, &v); err != nil {
		return err
	}
	r.Err = v.Err
	if v.Ok != nil {
		var ok interface{}
		if err := json.Unmarshal(*v.Ok, &ok); err != nil {
			return err
		}
		r.Ok = ok
	}
	return nil
}

// Failure returns the call error, if any
func (r Result) Failure() error {
	if r.Err == nil {
		return nil
	}
	return r.Err
}

func failed(kind ErrorKind, message string) Result {
	return Result{Err: &CallError{Kind: kind, Message: message}}
}
