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
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/tosca"
	"go.uber.org/mock/gomock"
)

func newTestContext(interpreter tosca.Interpreter) runContext {
	engine := cheatcodes.NewEngine(cheatcodes.Config{})
	return runContext{
		Store:       engine.Store(),
		engine:      engine,
		interpreter: interpreter,
	}
}

func cheatcodeInput(t *testing.T, op cheatcodes.Op, args ...any) []byte {
	t.Helper()
	input, err := cheatcodes.Encode(op, args...)
	if err != nil {
		t.Fatalf("failed to encode %v: %v", op, err)
	}
	return input
}

func TestCalls_InterpreterResultIsHandledCorrectly(t *testing.T) {
	tests := map[string]struct {
		result  tosca.Result
		success bool
		output  []byte
		gasLeft tosca.Gas
	}{
		"successful": {
			result:  tosca.Result{Success: true, GasLeft: 10},
			success: true,
			gasLeft: 10,
		},
		"failed": {
			result:  tosca.Result{Success: false},
			success: false,
		},
		"output": {
			result:  tosca.Result{Success: true, Output: []byte("some output")},
			success: true,
			output:  []byte("some output"),
		},
		"revert keeps gas": {
			result:  tosca.Result{Success: false, Output: []byte("reason"), GasLeft: 10},
			success: false,
			output:  []byte("reason"),
			gasLeft: 10,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := tosca.NewMockInterpreter(ctrl)
			interpreter.EXPECT().Run(gomock.Any()).Return(test.result, nil)

			context := newTestContext(interpreter)
			context.SetCode(tosca.Address{2}, tosca.Code{0x01})

			result, err := context.Call(tosca.Call, tosca.CallParameters{
				Sender:    tosca.Address{1},
				Recipient: tosca.Address{2},
				Gas:       1000,
			})
			if err != nil {
				t.Fatalf("Call returned an unexpected error: %v", err)
			}
			if want, got := test.success, result.Success; want != got {
				t.Errorf("unexpected success, wanted %t, got %t", want, got)
			}
			if want, got := string(test.output), string(result.Output); want != got {
				t.Errorf("unexpected output, wanted %q, got %q", want, got)
			}
			if want, got := test.gasLeft, result.GasLeft; want != got {
				t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
			}
		})
	}
}

func TestCalls_CallsToAccountsWithoutCodeSucceed(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := newTestContext(tosca.NewMockInterpreter(ctrl))

	result, err := context.Call(tosca.Call, tosca.CallParameters{
		Sender:    tosca.Address{1},
		Recipient: tosca.Address{2},
		Gas:       1000,
	})
	if err != nil || !result.Success {
		t.Fatalf("call to empty account failed: %v, %v", result, err)
	}
	if want, got := tosca.Gas(1000), result.GasLeft; want != got {
		t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
	}
}

func TestCalls_TransferValueInCall(t *testing.T) {
	tests := map[string]struct {
		balance tosca.Value
		success bool
	}{
		"sufficient balance":   {balance: tosca.NewValue(100), success: true},
		"exact balance":        {balance: tosca.NewValue(10), success: true},
		"insufficient balance": {balance: tosca.NewValue(9), success: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			context := newTestContext(tosca.NewMockInterpreter(ctrl))
			sender, recipient := tosca.Address{1}, tosca.Address{2}
			context.SetBalance(sender, test.balance)

			result, err := context.Call(tosca.Call, tosca.CallParameters{
				Sender:    sender,
				Recipient: recipient,
				Value:     tosca.NewValue(10),
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := test.success, result.Success; want != got {
				t.Fatalf("unexpected success, wanted %t, got %t", want, got)
			}

			wantSender, wantRecipient := test.balance, tosca.Value{}
			if test.success {
				wantSender, _ = tosca.Sub(test.balance, tosca.NewValue(10))
				wantRecipient = tosca.NewValue(10)
			}
			if got := context.GetBalance(sender); got != wantSender {
				t.Errorf("unexpected sender balance, wanted %v, got %v", wantSender, got)
			}
			if got := context.GetBalance(recipient); got != wantRecipient {
				t.Errorf("unexpected recipient balance, wanted %v, got %v", wantRecipient, got)
			}
		})
	}
}

func TestCalls_StateChangesAreRolledBackOnRevert(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)
	contract := tosca.Address{2}
	context.SetCode(contract, tosca.Code{0x01})

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		params.Context.SetStorage(params.Recipient, tosca.Key{1}, tosca.Word{2})
		params.Context.EmitLog(tosca.Log{Address: params.Recipient, Data: []byte{1}})
		return tosca.Result{Success: false, Output: []byte("reverted")}, nil
	})

	result, err := context.Call(tosca.Call, tosca.CallParameters{
		Sender:    tosca.Address{1},
		Recipient: contract,
	})
	if err != nil || result.Success {
		t.Fatalf("expected revert, got %v, %v", result, err)
	}
	if got := context.GetStorage(contract, tosca.Key{1}); got != (tosca.Word{}) {
		t.Errorf("storage change was not rolled back, got %v", got)
	}
	if got := context.GetLogs(); len(got) != 0 {
		t.Errorf("logs were not rolled back, got %v", got)
	}
}

func TestCalls_CheatcodeCallsAreServedByTheEngine(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := newTestContext(tosca.NewMockInterpreter(ctrl))

	result, err := context.Call(tosca.Call, tosca.CallParameters{
		Sender:    tosca.Address{1},
		Recipient: cheatcodes.Address(),
		Input:     cheatcodeInput(t, cheatcodes.OpDeal, common.Address{2}, common.Big3),
		Gas:       1000,
	})
	if err != nil || !result.Success {
		t.Fatalf("cheatcode call failed: %v, %v", result, err)
	}
	if want, got := tosca.Gas(1000), result.GasLeft; want != got {
		t.Errorf("unexpected gas left, wanted %d, got %d", want, got)
	}
	if want, got := tosca.NewValue(3), context.GetBalance(tosca.Address{2}); want != got {
		t.Errorf("unexpected balance, wanted %v, got %v", want, got)
	}
}

func TestCalls_FailingCheatcodesAbortTheRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	context := newTestContext(tosca.NewMockInterpreter(ctrl))

	_, err := context.Call(tosca.Call, tosca.CallParameters{
		Sender:    tosca.Address{1},
		Recipient: cheatcodes.Address(),
		Input:     cheatcodeInput(t, cheatcodes.OpAssertTrue, false),
	})
	if !errors.Is(err, cheatcodes.ErrAssertionFailed) {
		t.Errorf("unexpected error, wanted %v, got %v", cheatcodes.ErrAssertionFailed, err)
	}
	if !errors.Is(context.engine.Err(), cheatcodes.ErrAssertionFailed) {
		t.Errorf("failure was not recorded by the engine, got %v", context.engine.Err())
	}
}

func TestCalls_PrankReplacesSenderOfNextCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)

	caller, contract, target, pranked := tosca.Address{1}, tosca.Address{2}, tosca.Address{3}, tosca.Address{4}
	context.SetCode(contract, tosca.Code{0x01})
	context.SetCode(target, tosca.Code{0x02})

	var senders []tosca.Address
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		if params.Recipient != contract {
			senders = append(senders, params.Sender)
			return tosca.Result{Success: true}, nil
		}
		_, err := params.Context.Call(tosca.Call, tosca.CallParameters{
			Sender:    contract,
			Recipient: cheatcodes.Address(),
			Input:     cheatcodeInput(t, cheatcodes.OpPrank, common.Address(pranked)),
		})
		if err != nil {
			return tosca.Result{}, err
		}
		for i := 0; i < 2; i++ {
			if _, err := params.Context.Call(tosca.Call, tosca.CallParameters{Sender: contract, Recipient: target}); err != nil {
				return tosca.Result{}, err
			}
		}
		return tosca.Result{Success: true}, nil
	}).Times(3)

	result, err := context.Call(tosca.Call, tosca.CallParameters{Sender: caller, Recipient: contract})
	if err != nil || !result.Success {
		t.Fatalf("call failed: %v, %v", result, err)
	}
	want := []tosca.Address{pranked, contract}
	if len(senders) != len(want) || senders[0] != want[0] || senders[1] != want[1] {
		t.Errorf("unexpected senders, wanted %v, got %v", want, senders)
	}
}

func TestCalls_ExpectedRevertIsReportedAsSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)

	contract, target := tosca.Address{2}, tosca.Address{3}
	context.SetCode(contract, tosca.Code{0x01})
	context.SetCode(target, tosca.Code{0x02})

	var inner tosca.CallResult
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		if params.Recipient == target {
			return tosca.Result{Success: false, Output: []byte("boom")}, nil
		}
		_, err := params.Context.Call(tosca.Call, tosca.CallParameters{
			Sender:    contract,
			Recipient: cheatcodes.Address(),
			Input:     cheatcodeInput(t, cheatcodes.OpExpectRevert),
		})
		if err != nil {
			return tosca.Result{}, err
		}
		inner, err = params.Context.Call(tosca.Call, tosca.CallParameters{Sender: contract, Recipient: target})
		return tosca.Result{Success: true}, err
	}).Times(2)

	result, err := context.Call(tosca.Call, tosca.CallParameters{Sender: tosca.Address{1}, Recipient: contract})
	if err != nil || !result.Success {
		t.Fatalf("call failed: %v, %v", result, err)
	}
	if !inner.Success {
		t.Errorf("expected revert was not converted into success")
	}
	if want, got := "boom", string(inner.Output); want != got {
		t.Errorf("unexpected output of reverted call, wanted %q, got %q", want, got)
	}
}

func TestCalls_ExpectedRevertOfSuccessfulCallFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)

	contract, target := tosca.Address{2}, tosca.Address{3}
	context.SetCode(contract, tosca.Code{0x01})

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		_, err := params.Context.Call(tosca.Call, tosca.CallParameters{
			Sender:    contract,
			Recipient: cheatcodes.Address(),
			Input:     cheatcodeInput(t, cheatcodes.OpExpectRevert),
		})
		if err != nil {
			return tosca.Result{}, err
		}
		_, err = params.Context.Call(tosca.Call, tosca.CallParameters{Sender: contract, Recipient: target})
		return tosca.Result{Success: true}, err
	})

	_, err := context.Call(tosca.Call, tosca.CallParameters{Sender: tosca.Address{1}, Recipient: contract})
	if !errors.Is(err, cheatcodes.ErrExpectedRevertButSucceeded) {
		t.Errorf("unexpected error, wanted %v, got %v", cheatcodes.ErrExpectedRevertButSucceeded, err)
	}
}

func TestCalls_BlockParametersReflectCheatcodes(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)
	context.SetCode(tosca.Address{2}, tosca.Code{0x01})

	input := cheatcodeInput(t, cheatcodes.OpWarp, common.Big2)
	if _, err := context.engine.Call(cheatcodes.Issuer{}, input); err != nil {
		t.Fatalf("warp failed: %v", err)
	}

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		if want, got := uint64(2), params.Timestamp; want != got {
			t.Errorf("unexpected timestamp, wanted %d, got %d", want, got)
		}
		if want, got := uint64(cheatcodes.DefaultChainID), params.ChainID; want != got {
			t.Errorf("unexpected chain ID, wanted %d, got %d", want, got)
		}
		return tosca.Result{Success: true}, nil
	})

	if _, err := context.Call(tosca.Call, tosca.CallParameters{Sender: tosca.Address{1}, Recipient: tosca.Address{2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCalls_DelegateCallRunsCodeOfCodeAddress(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)

	recipient, library := tosca.Address{2}, tosca.Address{3}
	context.SetCode(library, tosca.Code{0x42})

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		if want, got := recipient, params.Recipient; want != got {
			t.Errorf("unexpected recipient, wanted %v, got %v", want, got)
		}
		if want, got := (tosca.Code{0x42}), params.Code; len(got) != 1 || got[0] != want[0] {
			t.Errorf("unexpected code, wanted %x, got %x", want, got)
		}
		return tosca.Result{Success: true}, nil
	})

	_, err := context.Call(tosca.DelegateCall, tosca.CallParameters{
		Sender:      tosca.Address{1},
		Recipient:   recipient,
		CodeAddress: library,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCalls_DelegateCallClaimsExpectationsOfIssuingFrame(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)

	caller, contract, library := tosca.Address{1}, tosca.Address{2}, tosca.Address{3}
	context.SetCode(contract, tosca.Code{0x01})
	context.SetCode(library, tosca.Code{0x02})

	var inner tosca.CallResult
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		if params.Code[0] == 0x02 {
			return tosca.Result{Success: false, Output: []byte("boom")}, nil
		}
		_, err := params.Context.Call(tosca.Call, tosca.CallParameters{
			Sender:    contract,
			Recipient: cheatcodes.Address(),
			Input:     cheatcodeInput(t, cheatcodes.OpExpectRevert),
		})
		if err != nil {
			return tosca.Result{}, err
		}
		inner, err = params.Context.Call(tosca.DelegateCall, tosca.CallParameters{
			Sender:      params.Sender,
			Recipient:   contract,
			CodeAddress: library,
		})
		return tosca.Result{Success: true}, err
	}).Times(2)

	result, err := context.Call(tosca.Call, tosca.CallParameters{Sender: caller, Recipient: contract})
	if err != nil || !result.Success {
		t.Fatalf("call failed: %v, %v", result, err)
	}
	if !inner.Success || string(inner.Output) != "boom" {
		t.Errorf("expected revert was not claimed by the delegate call: %v", inner)
	}
	if context.engine.Expectations().RevertPending() {
		t.Errorf("revert expectation is still pending")
	}
}

func TestCalls_DelegateCallKeepsSenderUnlessPranked(t *testing.T) {
	tests := map[string]struct {
		prank bool
		want  tosca.Address
	}{
		"plain":   {prank: false, want: tosca.Address{1}},
		"pranked": {prank: true, want: tosca.Address{4}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			interpreter := tosca.NewMockInterpreter(ctrl)
			context := newTestContext(interpreter)

			caller, contract, library, pranked := tosca.Address{1}, tosca.Address{2}, tosca.Address{3}, tosca.Address{4}
			context.SetCode(contract, tosca.Code{0x01})
			context.SetCode(library, tosca.Code{0x02})

			var sender tosca.Address
			interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
				if params.Code[0] == 0x02 {
					sender = params.Sender
					return tosca.Result{Success: true}, nil
				}
				if test.prank {
					_, err := params.Context.Call(tosca.Call, tosca.CallParameters{
						Sender:    contract,
						Recipient: cheatcodes.Address(),
						Input:     cheatcodeInput(t, cheatcodes.OpPrank, common.Address(pranked)),
					})
					if err != nil {
						return tosca.Result{}, err
					}
				}
				_, err := params.Context.Call(tosca.DelegateCall, tosca.CallParameters{
					Sender:      params.Sender,
					Recipient:   contract,
					CodeAddress: library,
				})
				return tosca.Result{Success: true}, err
			}).Times(2)

			if _, err := context.Call(tosca.Call, tosca.CallParameters{Sender: caller, Recipient: contract}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sender != test.want {
				t.Errorf("unexpected sender of delegated frame, wanted %v, got %v", test.want, sender)
			}
		})
	}
}

func TestCalls_StaticCallsMarkNestedFramesAsStatic(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)
	context.SetCode(tosca.Address{2}, tosca.Code{0x01})

	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		if !params.Static {
			t.Errorf("static flag not set")
		}
		return tosca.Result{Success: true}, nil
	})

	if _, err := context.Call(tosca.StaticCall, tosca.CallParameters{Sender: tosca.Address{1}, Recipient: tosca.Address{2}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCalls_DepthIsLimited(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)
	contract := tosca.Address{2}
	context.SetCode(contract, tosca.Code{0x01})

	maxDepth := 0
	interpreter.EXPECT().Run(gomock.Any()).DoAndReturn(func(params tosca.Parameters) (tosca.Result, error) {
		maxDepth = max(maxDepth, params.Depth)
		result, err := params.Context.Call(tosca.Call, tosca.CallParameters{Sender: contract, Recipient: contract})
		return tosca.Result{Success: true, Output: []byte{boolToByte(result.Success)}}, err
	}).AnyTimes()

	result, err := context.Call(tosca.Call, tosca.CallParameters{Sender: tosca.Address{1}, Recipient: contract})
	if err != nil || !result.Success {
		t.Fatalf("call failed: %v, %v", result, err)
	}
	if want, got := MaxRecursiveDepth, maxDepth; want != got {
		t.Errorf("unexpected maximum depth, wanted %d, got %d", want, got)
	}
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func TestCreate_AddressIsDerivedFromSenderAndNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)
	sender := tosca.Address{1}
	context.SetNonce(sender, 4)

	interpreter.EXPECT().Run(gomock.Any()).Return(tosca.Result{Success: true, Output: []byte{0xAB}}, nil)

	result, err := context.Call(tosca.Create, tosca.CallParameters{
		Sender: sender,
		Input:  []byte{0x01},
	})
	if err != nil || !result.Success {
		t.Fatalf("create failed: %v, %v", result, err)
	}
	want := tosca.Address(crypto.CreateAddress(common.Address(sender), 4))
	if got := result.CreatedAddress; want != got {
		t.Errorf("unexpected address, wanted %v, got %v", want, got)
	}
	if code := context.GetCode(want); len(code) != 1 || code[0] != 0xAB {
		t.Errorf("unexpected code of created contract: %x", code)
	}
	if want, got := uint64(5), context.GetNonce(sender); want != got {
		t.Errorf("unexpected sender nonce, wanted %d, got %d", want, got)
	}
	if want, got := uint64(1), context.GetNonce(result.CreatedAddress); want != got {
		t.Errorf("unexpected nonce of created contract, wanted %d, got %d", want, got)
	}
}

func TestCreate_Create2AddressIsDerivedFromSalt(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)
	sender, initCode, salt := tosca.Address{1}, []byte{0x01, 0x02}, tosca.Hash{7}

	interpreter.EXPECT().Run(gomock.Any()).Return(tosca.Result{Success: true}, nil)

	result, err := context.Call(tosca.Create2, tosca.CallParameters{
		Sender: sender,
		Input:  initCode,
		Salt:   salt,
	})
	if err != nil || !result.Success {
		t.Fatalf("create failed: %v, %v", result, err)
	}
	want := tosca.Address(crypto.CreateAddress2(common.Address(sender), common.Hash(salt), crypto.Keccak256(initCode)))
	if got := result.CreatedAddress; want != got {
		t.Errorf("unexpected address, wanted %v, got %v", want, got)
	}
}

func TestCreate_RevertedCreateLeavesNoContract(t *testing.T) {
	ctrl := gomock.NewController(t)
	interpreter := tosca.NewMockInterpreter(ctrl)
	context := newTestContext(interpreter)
	sender := tosca.Address{1}

	interpreter.EXPECT().Run(gomock.Any()).Return(tosca.Result{Success: false, Output: []byte("no")}, nil)

	result, err := context.Call(tosca.Create, tosca.CallParameters{Sender: sender, Input: []byte{0x01}})
	if err != nil || result.Success {
		t.Fatalf("expected revert, got %v, %v", result, err)
	}
	created := tosca.Address(crypto.CreateAddress(common.Address(sender), 0))
	if context.AccountExists(created) && len(context.GetCode(created)) != 0 {
		t.Errorf("reverted create left code behind")
	}
}
