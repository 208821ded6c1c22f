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

import "github.com/skribe-dev/skribe/go/tosca"

// DefaultChainID is the chain id reported to modules unless configured
// otherwise.
const DefaultChainID = 31337

// Environment is the block context observed by modules. It is modified by
// the warp, roll and fee cheatcodes; none of them enforce monotonicity.
type Environment struct {
	ChainID     uint64
	Timestamp   uint64
	BlockNumber uint64
	BaseFee     tosca.Value
}

func NewEnvironment() Environment {
	return Environment{ChainID: DefaultChainID}
}

func (e Environment) BlockParameters() tosca.BlockParameters {
	return tosca.BlockParameters{
		ChainID:     e.ChainID,
		BlockNumber: e.BlockNumber,
		Timestamp:   e.Timestamp,
		BaseFee:     e.BaseFee,
	}
}
