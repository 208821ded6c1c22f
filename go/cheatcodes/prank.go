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

// Issuer identifies the call frame issuing a call: the account executing the
// frame and the depth of the calls it issues.
type Issuer struct {
	Account tosca.Address
	Depth   int
}

func (i Issuer) String() string {
	return fmt.Sprintf("%v@%d", i.Account, i.Depth)
}

type OverrideKind int

const (
	NoOverride OverrideKind = iota
	OneShot
	Persistent
)

func (k OverrideKind) String() string {
	switch k {
	case NoOverride:
		return "none"
	case OneShot:
		return "one-shot"
	case Persistent:
		return "persistent"
	default:
		return fmt.Sprintf("OverrideKind(%d)", int(k))
	}
}

// CallerOverride is the single caller override slot. Installing an override
// replaces the previous one; overrides never stack. An override only applies
// to calls issued by the frame that installed it.
type CallerOverride struct {
	Kind   OverrideKind
	Caller tosca.Address
	owner  Issuer
}

func (o *CallerOverride) install(kind OverrideKind, caller tosca.Address, owner Issuer) {
	*o = CallerOverride{Kind: kind, Caller: caller, owner: owner}
}

func (o *CallerOverride) clear() {
	*o = CallerOverride{}
}

// claim returns the caller to use for a call issued by the given frame and
// whether an override was applied. One-shot overrides are reset on use.
func (o *CallerOverride) claim(issuer Issuer) (tosca.Address, bool) {
	if o.Kind == NoOverride || o.owner != issuer {
		return issuer.Account, false
	}
	caller := o.Caller
	if o.Kind == OneShot {
		o.clear()
	}
	return caller, true
}
