// Copyright The NRI Plugins Authors. All Rights Reserved.
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

// Package multierror is a thin formatting layer over hashicorp/go-multierror,
// collapsing the accumulated errors into one newline-separated message per
// error, with no bullet/indentation decoration.
package multierror

import (
	"strings"

	hcmerr "github.com/hashicorp/go-multierror"
)

// Error wraps a hashicorp/go-multierror.Error with plain newline formatting.
type Error struct {
	merr *hcmerr.Error
}

// New collapses err into an *Error. If err is already a multi-error, its
// constituent errors are preserved; otherwise err becomes the sole entry.
func New(err error) *Error {
	if err == nil {
		return &Error{merr: &hcmerr.Error{}}
	}
	if merr, ok := err.(*hcmerr.Error); ok {
		return &Error{merr: merr}
	}
	return &Error{merr: hcmerr.Append(nil, err)}
}

// Append adds err to a running multi-error, returning the updated *Error.
func Append(into *Error, err error) *Error {
	if into == nil {
		return New(err)
	}
	into.merr = hcmerr.Append(into.merr, err)
	return into
}

// Errors returns the accumulated sub-errors.
func (e *Error) Errors() []error {
	if e == nil || e.merr == nil {
		return nil
	}
	return e.merr.Errors
}

// Error renders the accumulated errors one per line, with no decoration.
func (e *Error) Error() string {
	errs := e.Errors()
	if len(errs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(errs))
	for _, sub := range errs {
		lines = append(lines, sub.Error())
	}
	return strings.Join(lines, "\n")
}

// ErrorOrNil returns nil if no errors were accumulated, otherwise e.
func (e *Error) ErrorOrNil() error {
	if len(e.Errors()) == 0 {
		return nil
	}
	return e
}
