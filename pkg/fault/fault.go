// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fault classifies the errors an acquisition job can end with.
package fault

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Kind is the class of a pipeline error
type Kind int

const (
	KindUnknown         Kind = iota
	KindResolution           // no provider matches a locator
	KindTransport            // network failure at any fetch
	KindFormat               // decode or parse failure
	KindPartialAssembly      // one or more asset fetches failed
)

func (k Kind) String() string {
	switch k {
	case KindResolution:
		return "resolution"
	case KindTransport:
		return "transport"
	case KindFormat:
		return "format"
	case KindPartialAssembly:
		return "partial assembly"
	default:
		return "unknown"
	}
}

// 🚨 Error is a classified pipeline error
type Error struct {
	Kind Kind   // Error class
	Op   string // Operation being performed
	Err  error  // Underlying error, may be nil
}

var (
	ErrResolution      = &Error{Kind: KindResolution}
	ErrTransport       = &Error{Kind: KindTransport}
	ErrFormat          = &Error{Kind: KindFormat}
	ErrPartialAssembly = &Error{Kind: KindPartialAssembly}
)

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Err == nil:
		return e.Kind.String() + " error"
	case e.Err == nil:
		return e.Op
	case e.Op == "":
		return e.Err.Error()
	default:
		return e.Op + ": " + e.Err.Error()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the bare sentinels (ErrTransport, ErrFormat, ...) by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

func newError(kind Kind, op string, err error) error {
	return errors.WithStack(&Error{Kind: kind, Op: op, Err: err})
}

// 🔍 Resolution reports a locator no provider can handle
func Resolution(op string, err error) error {
	return newError(KindResolution, op, err)
}

// 🌐 Transport reports a failed network exchange
func Transport(op string, err error) error {
	return newError(KindTransport, op, err)
}

// 🧩 Format reports a payload that cannot be decoded or parsed
func Format(op string, err error) error {
	return newError(KindFormat, op, err)
}

// Formatf is Format with a formatted message and no underlying error.
func Formatf(format string, args ...any) error {
	return newError(KindFormat, fmt.Sprintf(format, args...), nil)
}

// 📦 PartialAssembly reports assets that could not be stored
func PartialAssembly(op string, err error) error {
	return newError(KindPartialAssembly, op, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
