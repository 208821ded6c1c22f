// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cheatcodes

import (
	"fmt"

	"github.com/skribe-dev/skribe/go/tosca"
)

const (
	ErrUnknownCheatcode           = tosca.ConstError("unknown cheatcode")
	ErrInvalidArgument            = tosca.ConstError("invalid argument")
	ErrIoError                    = tosca.ConstError("i/o error")
	ErrEmitExpectationFailed      = tosca.ConstError("emit expectation failed")
	ErrExpectedRevertButSucceeded = tosca.ConstError("expected revert but call succeeded")
	ErrAssertionFailed            = tosca.ConstError("assertion failed")

	// ErrDiscard aborts the current run after assume(false). It is not a test
	// failure; drivers resample their inputs when they observe it.
	ErrDiscard = tosca.ConstError("inputs discarded by assume")
)

// Failure is a test-case fatal cheatcode error. It names the operation that
// failed and unwraps to one of the sentinel errors of this package.
type Failure struct {
	Kind   error
	Op     Op
	Detail string
}

func newFailure(kind error, op Op, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Op: op, Detail: fmt.Sprintf(format, args...)}
}

func (f *Failure) Error() string {
	if f.Detail == "" {
		return fmt.Sprintf("%v: %v", f.Op, f.Kind)
	}
	return fmt.Sprintf("%v: %v: %s", f.Op, f.Kind, f.Detail)
}

func (f *Failure) Unwrap() error {
	return f.Kind
}
