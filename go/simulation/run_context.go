// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package simulation

import (
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/tosca"

	// geth dependencies
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MaxRecursiveDepth is the maximum depth of nested calls.
const MaxRecursiveDepth = 1024

// runContext routes the calls issued by running code. Calls to the cheatcode
// address are served by the engine, all other calls are bracketed by the
// engine's call hook and executed by the interpreter.
type runContext struct {
	*cheatcodes.Store
	engine      *cheatcodes.Engine
	interpreter tosca.Interpreter
	depth       int
	static      bool
}

func (r runContext) CurrentBlockParameters() tosca.BlockParameters {
	return r.engine.CurrentBlockParameters()
}

func (r runContext) Call(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.CallResult, error) {
	// delegated calls keep the sender of the issuing frame, which itself runs
	// as the recipient
	delegated := kind == tosca.DelegateCall || kind == tosca.CallCode
	issuer := cheatcodes.Issuer{Account: parameters.Sender, Depth: r.depth}
	if delegated {
		issuer.Account = parameters.Recipient
	}
	if !kind.IsCreate() && parameters.Recipient == cheatcodes.Address() {
		return r.executeCheatcode(issuer, parameters)
	}

	handle := r.engine.BeforeCall(issuer)
	if !delegated || handle.Pranked {
		parameters.Sender = handle.Sender
	}

	var result tosca.CallResult
	var err error
	if kind.IsCreate() {
		result, err = r.executeCreate(kind, parameters)
	} else {
		result, err = r.executeCall(kind, parameters)
	}
	if err != nil {
		return result, err
	}
	return r.engine.AfterCall(handle, result)
}

func (r runContext) executeCheatcode(issuer cheatcodes.Issuer, parameters tosca.CallParameters) (tosca.CallResult, error) {
	output, err := r.engine.Call(issuer, parameters.Input)
	if err != nil {
		return tosca.CallResult{GasLeft: parameters.Gas}, err
	}
	return tosca.CallResult{
		Output:  output,
		GasLeft: parameters.Gas,
		Success: true,
	}, nil
}

func (r runContext) executeCall(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.CallResult, error) {
	errResult := tosca.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth > MaxRecursiveDepth {
		return errResult, nil
	}
	r.depth++

	transfersValue := kind == tosca.Call || kind == tosca.CallCode
	if transfersValue && !canTransferValue(r, parameters.Value, parameters.Sender, parameters.Recipient) {
		return errResult, nil
	}
	snapshot := r.CreateSnapshot()
	recipient := parameters.Recipient

	if kind == tosca.StaticCall {
		r.static = true
	}
	if transfersValue {
		transferValue(r, parameters.Value, parameters.Sender, recipient)
	}

	codeAddress := recipient
	if kind == tosca.DelegateCall || kind == tosca.CallCode {
		codeAddress = parameters.CodeAddress
	}
	code := r.GetCode(codeAddress)
	if len(code) == 0 {
		return tosca.CallResult{Success: true, GasLeft: parameters.Gas}, nil
	}
	codeHash := r.GetCodeHash(codeAddress)

	interpreterParameters := tosca.Parameters{
		BlockParameters: r.engine.CurrentBlockParameters(),
		Context:         r,
		Kind:            kind,
		Static:          r.static,
		Depth:           r.depth - 1, // depth has already been incremented
		Gas:             parameters.Gas,
		Recipient:       recipient,
		Sender:          parameters.Sender,
		Input:           parameters.Input,
		Value:           parameters.Value,
		CodeHash:        &codeHash,
		Code:            code,
	}

	result, err := r.interpreter.Run(interpreterParameters)
	if err != nil || !result.Success {
		r.RestoreSnapshot(snapshot)

		if !isRevert(result, err) {
			// if the unsuccessful call was due to a revert, the gas is not consumed
			result.GasLeft = 0
		}
	}

	return tosca.CallResult{
		Output:  result.Output,
		GasLeft: result.GasLeft,
		Success: result.Success,
	}, err
}

func (r runContext) executeCreate(kind tosca.CallKind, parameters tosca.CallParameters) (tosca.CallResult, error) {
	errResult := tosca.CallResult{
		Success: false,
		GasLeft: parameters.Gas,
	}
	if r.depth > MaxRecursiveDepth {
		return errResult, nil
	}
	r.depth++

	if r.GetBalance(parameters.Sender).Cmp(parameters.Value) < 0 {
		return errResult, nil
	}
	nonce := r.GetNonce(parameters.Sender)
	if nonce+1 < nonce {
		return errResult, nil
	}
	r.SetNonce(parameters.Sender, nonce+1)

	code := tosca.Code(parameters.Input)
	codeHash := cheatcodes.Keccak256(code)
	createdAddress := createAddress(kind, parameters.Sender, nonce, parameters.Salt, codeHash)

	if r.GetNonce(createdAddress) != 0 || len(r.GetCode(createdAddress)) != 0 {
		return tosca.CallResult{GasLeft: parameters.Gas}, nil
	}
	snapshot := r.CreateSnapshot()
	r.SetNonce(createdAddress, 1)
	transferValue(r, parameters.Value, parameters.Sender, createdAddress)

	interpreterParameters := tosca.Parameters{
		BlockParameters: r.engine.CurrentBlockParameters(),
		Context:         r,
		Kind:            kind,
		Static:          r.static,
		Depth:           r.depth - 1, // depth has already been incremented
		Gas:             parameters.Gas,
		Recipient:       createdAddress,
		Sender:          parameters.Sender,
		Input:           nil,
		Value:           parameters.Value,
		CodeHash:        &codeHash,
		Code:            code,
	}

	result, err := r.interpreter.Run(interpreterParameters)
	if err != nil || !result.Success {
		r.RestoreSnapshot(snapshot)

		if !isRevert(result, err) {
			return tosca.CallResult{}, err
		}
		// if the unsuccessful create was due to a revert, the result is still returned
		return tosca.CallResult{Output: result.Output, GasLeft: result.GasLeft, CreatedAddress: createdAddress}, nil
	}

	r.SetCode(createdAddress, tosca.Code(result.Output))
	return tosca.CallResult{
		GasLeft:        result.GasLeft,
		Success:        true,
		CreatedAddress: createdAddress,
	}, nil
}

func isRevert(result tosca.Result, err error) bool {
	return err == nil && !result.Success && (result.GasLeft > 0 || len(result.Output) > 0)
}

func createAddress(
	kind tosca.CallKind,
	sender tosca.Address,
	nonce uint64,
	salt tosca.Hash,
	initHash tosca.Hash,
) tosca.Address {
	if kind == tosca.Create {
		return tosca.Address(crypto.CreateAddress(common.Address(sender), nonce))
	}
	return tosca.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), initHash[:]))
}

func canTransferValue(
	context tosca.WorldState,
	value tosca.Value,
	sender tosca.Address,
	recipient tosca.Address,
) bool {
	if value.IsZero() {
		return true
	}
	if context.GetBalance(sender).Cmp(value) < 0 {
		return false
	}
	if sender == recipient {
		return true
	}
	_, overflow := tosca.Add(context.GetBalance(recipient), value)
	return !overflow
}

// transferValue moves value between accounts, it must be preceded by a
// successful canTransferValue check.
func transferValue(
	context tosca.WorldState,
	value tosca.Value,
	sender tosca.Address,
	recipient tosca.Address,
) {
	if value.IsZero() || sender == recipient {
		return
	}
	senderBalance, _ := tosca.Sub(context.GetBalance(sender), value)
	receiverBalance, _ := tosca.Add(context.GetBalance(recipient), value)
	context.SetBalance(sender, senderBalance)
	context.SetBalance(recipient, receiverBalance)
}
