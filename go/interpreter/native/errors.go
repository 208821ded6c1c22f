// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package native

import "github.com/skribe-dev/skribe/go/tosca"

const (
	ErrUnknownModule   = tosca.ConstError("unknown module")
	ErrInvalidCode     = tosca.ConstError("code is not a native module")
	ErrWriteProtection = tosca.ConstError("write protection")
	ErrUnknownMethod   = tosca.ConstError("unknown method")
)

// RevertError is returned by modules to end the current call with a revert.
// The revert data is reported as the output of the call.
type RevertError struct {
	Data []byte
}

func (e *RevertError) Error() string {
	return "execution reverted"
}

// Revert creates an error reverting the current call with the given data.
func Revert(data []byte) error {
	return &RevertError{Data: data}
}
