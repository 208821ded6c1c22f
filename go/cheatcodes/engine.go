// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package cheatcodes implements the privileged operations a module under test
// can invoke by calling the reserved cheatcode address, together with the
// per-test-case state they manipulate.
//
// An Engine bundles a Store, the block Environment, the caller override, the
// pending expectations and the assume signal. Engines are never shared: the
// harness forks a fresh engine for every test case. Besides Call, the runtime
// brackets every other call with BeforeCall and AfterCall, which apply the
// caller override and consume pending expectations.
package cheatcodes

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"
	"github.com/skribe-dev/skribe/go/tosca"
)

// Config contains the configuration options of an Engine.
type Config struct {
	// Files serves the file system cheatcodes. If nil, they fail with ErrIoError.
	Files Files
	// RearmPolicy governs arming an expectation while one is pending.
	RearmPolicy RearmPolicy
	// Logger is used to trace cheatcodes. If nil, the root logger is used.
	Logger log.Logger
}

type Engine struct {
	config       Config
	log          log.Logger
	store        *Store
	env          Environment
	override     CallerOverride
	expectations Expectations
	assume       bool
	err          error
}

func NewEngine(config Config) *Engine {
	logger := config.Logger
	if logger == nil {
		logger = log.New("module", "cheatcodes")
	}
	return &Engine{
		config: config,
		log:    logger,
		store:  NewStore(),
		env:    NewEnvironment(),
	}
}

// Fork creates an independent copy of the engine and all of its state.
func (e *Engine) Fork() *Engine {
	res := *e
	res.store = e.store.Clone()
	return &res
}

func (e *Engine) Store() *Store {
	return e.store
}

func (e *Engine) Environment() Environment {
	return e.env
}

func (e *Engine) SetEnvironment(env Environment) {
	e.env = env
}

// CurrentBlockParameters reports the block context as modified by cheatcodes.
func (e *Engine) CurrentBlockParameters() tosca.BlockParameters {
	return e.env.BlockParameters()
}

func (e *Engine) CallerOverride() CallerOverride {
	return e.override
}

func (e *Engine) Expectations() Expectations {
	return e.expectations
}

// Err returns the first fatal failure observed by the engine, if any. It stays
// set even if the module swallowed the error returned by the failing call.
func (e *Engine) Err() error {
	return e.err
}

// TakeAssumeSignal reports whether assume(false) was called since the last
// invocation and clears the signal.
func (e *Engine) TakeAssumeSignal() bool {
	res := e.assume
	e.assume = false
	return res
}

func (e *Engine) fail(err error) error {
	if e.err == nil {
		e.err = err
	}
	e.log.Debug("Cheatcode failed", "err", err)
	return err
}

// Call executes the cheatcode addressed by the given input on behalf of the
// issuing frame and returns the ABI-encoded result. All returned errors are
// fatal for the test case, except ErrDiscard. A failing cheatcode does not
// modify any state.
func (e *Engine) Call(issuer Issuer, input []byte) ([]byte, error) {
	op, found := lookup(input)
	if !found {
		return nil, e.fail(newFailure(ErrUnknownCheatcode, OpUnknown, "selector 0x%x", input[:min(4, len(input))]))
	}
	method := opMethods[op]
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, e.fail(newFailure(ErrInvalidArgument, op, "%v", err))
	}
	e.log.Trace("Cheatcode", "op", op, "issuer", issuer, "args", args)

	results, err := e.execute(op, issuer, args)
	if errors.Is(err, ErrDiscard) {
		return nil, err
	}
	if err != nil {
		return nil, e.fail(err)
	}
	output, err := method.Outputs.Pack(results...)
	if err != nil {
		return nil, e.fail(newFailure(ErrInvalidArgument, op, "failed to encode result: %v", err))
	}
	return output, nil
}

func (e *Engine) execute(op Op, issuer Issuer, args []any) ([]any, error) {
	switch op {
	case OpSign:
		key, err := privateKey(op, args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		digest := args[1].([32]byte)
		sig, err := crypto.Sign(digest[:], key)
		if err != nil {
			return nil, newFailure(ErrInvalidArgument, op, "%v", err)
		}
		var r, s [32]byte
		copy(r[:], sig[:32])
		copy(s[:], sig[32:64])
		return []any{sig[64] + 27, r, s}, nil

	case OpAddr:
		key, err := privateKey(op, args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return []any{crypto.PubkeyToAddress(key.PublicKey)}, nil

	case OpGetNonce:
		return []any{e.store.GetNonce(address(args[0]))}, nil

	case OpLoad:
		value := e.store.GetStorage(address(args[0]), tosca.Key(args[1].([32]byte)))
		return []any{[32]byte(value)}, nil

	case OpStore:
		e.store.SetStorage(address(args[0]), tosca.Key(args[1].([32]byte)), tosca.Word(args[2].([32]byte)))
		return nil, nil

	case OpDeal:
		balance, err := toValue(op, args[1].(*big.Int))
		if err != nil {
			return nil, err
		}
		e.store.SetBalance(address(args[0]), balance)
		return nil, nil

	case OpEtch:
		e.store.SetCode(address(args[0]), tosca.Code(args[1].([]byte)))
		return nil, nil

	case OpProjectRoot:
		if e.config.Files == nil {
			return nil, newFailure(ErrIoError, op, "no file system available")
		}
		return []any{e.config.Files.ProjectRoot()}, nil

	case OpReadFile, OpReadFileBinary:
		data, err := e.readFile(op, args[0].(string))
		if err != nil {
			return nil, err
		}
		if op == OpReadFile {
			return []any{string(data)}, nil
		}
		return []any{data}, nil

	case OpAssertTrue:
		if !args[0].(bool) {
			return nil, newFailure(ErrAssertionFailed, op, "condition is false")
		}
		return nil, nil

	case OpAssume:
		if !args[0].(bool) {
			e.assume = true
			return nil, ErrDiscard
		}
		return nil, nil

	case OpWarp:
		timestamp, err := toUint64(op, args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		e.env.Timestamp = timestamp
		return nil, nil

	case OpRoll:
		number, err := toUint64(op, args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		e.env.BlockNumber = number
		return nil, nil

	case OpFee:
		fee, err := toValue(op, args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		e.env.BaseFee = fee
		return nil, nil

	case OpPrank:
		e.override.install(OneShot, address(args[0]), issuer)
		return nil, nil

	case OpStartPrank:
		e.override.install(Persistent, address(args[0]), issuer)
		return nil, nil

	case OpStopPrank:
		e.override.clear()
		return nil, nil

	case OpExpectEmit:
		if e.expectations.emit != nil && e.config.RearmPolicy == Reject {
			return nil, newFailure(ErrInvalidArgument, op, "an emit expectation is already pending")
		}
		e.expectations.emit = &emitExpectation{owner: issuer, armedAt: len(e.store.logs)}
		return nil, nil

	case OpExpectRevert:
		if e.expectations.revert != nil && e.config.RearmPolicy == Reject {
			return nil, newFailure(ErrInvalidArgument, op, "a revert expectation is already pending")
		}
		e.expectations.revert = &revertExpectation{owner: issuer}
		return nil, nil
	}
	return nil, newFailure(ErrUnknownCheatcode, op, "")
}

func (e *Engine) readFile(op Op, path string) ([]byte, error) {
	if e.config.Files == nil {
		return nil, newFailure(ErrIoError, op, "no file system available")
	}
	data, err := e.config.Files.ReadFile(path)
	if err != nil {
		return nil, newFailure(ErrIoError, op, "%v", err)
	}
	return data, nil
}

// CallHandle carries the caller override and the expectations claimed by a
// call from BeforeCall to AfterCall.
type CallHandle struct {
	// Sender is the sender to use for the call.
	Sender tosca.Address
	// Pranked is set if Sender is the result of a caller override.
	Pranked bool

	emit   *emitClaim
	revert bool
}

// BeforeCall must be invoked by the runtime before every call that is not
// addressed to the cheatcode address. It applies the caller override and
// claims the expectations installed by the issuing frame.
func (e *Engine) BeforeCall(issuer Issuer) CallHandle {
	sender, pranked := e.override.claim(issuer)
	emit, revert := e.expectations.claim(issuer, e.store.GetLogs())
	if pranked || emit != nil || revert {
		e.log.Trace("Call intercepted", "issuer", issuer, "sender", sender, "expectEmit", emit != nil, "expectRevert", revert)
	}
	return CallHandle{
		Sender:  sender,
		Pranked: pranked,
		emit:    emit,
		revert:  revert,
	}
}

// AfterCall must be invoked by the runtime with the outcome of every call
// started with BeforeCall. It checks the claimed expectations and returns the
// outcome to report to the issuer; an expected revert is reported as success.
func (e *Engine) AfterCall(handle CallHandle, result tosca.CallResult) (tosca.CallResult, error) {
	if handle.emit != nil {
		if err := handle.emit.check(e.store.logs); err != nil {
			return result, e.fail(newFailure(ErrEmitExpectationFailed, OpExpectEmit, "%v", err))
		}
	}
	if handle.revert {
		if result.Success {
			return result, e.fail(newFailure(ErrExpectedRevertButSucceeded, OpExpectRevert, ""))
		}
		result.Success = true
	}
	return result, nil
}

func address(arg any) tosca.Address {
	return tosca.Address(arg.(common.Address))
}

func privateKey(op Op, value *big.Int) (*ecdsa.PrivateKey, error) {
	var key [32]byte
	if value.Sign() < 0 || value.BitLen() > 256 {
		return nil, newFailure(ErrInvalidArgument, op, "private key out of range")
	}
	value.FillBytes(key[:])
	res, err := crypto.ToECDSA(key[:])
	if err != nil {
		return nil, newFailure(ErrInvalidArgument, op, "%v", err)
	}
	return res, nil
}

func toValue(op Op, value *big.Int) (tosca.Value, error) {
	res, overflow := uint256.FromBig(value)
	if overflow || value.Sign() < 0 {
		return tosca.Value{}, newFailure(ErrInvalidArgument, op, "%v is not a 256-bit unsigned integer", value)
	}
	return tosca.ValueFromUint256(res), nil
}

func toUint64(op Op, value *big.Int) (uint64, error) {
	if !value.IsUint64() {
		return 0, newFailure(ErrInvalidArgument, op, "%v exceeds the 64-bit range", value)
	}
	return value.Uint64(), nil
}

