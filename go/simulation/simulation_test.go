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
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/skribe-dev/skribe/go/cheatcodes"
	"github.com/skribe-dev/skribe/go/interpreter/native"
	"github.com/skribe-dev/skribe/go/tosca"
)

const storeABI = `[
	{"type":"function","name":"set","inputs":[{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"payable"},
	{"type":"function","name":"get","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"fail","inputs":[],"outputs":[],"stateMutability":"nonpayable"}
]`

var storeContract = native.MustNewContract(storeABI, map[string]native.Method{
	"set": func(f *native.Frame, args []any) ([]any, error) {
		value := args[0].(*big.Int)
		if err := f.Store(tosca.Key{}, tosca.Word(common.BigToHash(value))); err != nil {
			return nil, err
		}
		return []any{value}, nil
	},
	"get": func(f *native.Frame, _ []any) ([]any, error) {
		value := f.Load(tosca.Key{})
		return []any{new(big.Int).SetBytes(value[:])}, nil
	},
	"fail": func(*native.Frame, []any) ([]any, error) {
		return nil, native.Revert([]byte("failed"))
	},
})

func init() {
	native.MustRegisterModule("simulation-store", storeContract)
}

func newTestSimulation(t *testing.T) *Simulation {
	t.Helper()
	interpreter, err := tosca.NewInterpreter("native")
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	return New(interpreter, cheatcodes.NewEngine(cheatcodes.Config{}))
}

func pack(t *testing.T, method string, args ...any) []byte {
	t.Helper()
	definition := storeContract.ABI()
	input, err := definition.Pack(method, args...)
	if err != nil {
		t.Fatalf("failed to encode call of %s: %v", method, err)
	}
	return input
}

func TestSimulation_WellKnownAddresses(t *testing.T) {
	if want, got := "0x1804c8AB1F12E6bbf3894d4083f33e07309d1f38", common.Address(TestCallerAddress()).Hex(); want != got {
		t.Errorf("unexpected test caller address, wanted %s, got %s", want, got)
	}
	if want, got := "0x7FA9385bE102ac3EAc297483Dd6233D62b3e1496", common.Address(TestContractAddress()).Hex(); want != got {
		t.Errorf("unexpected test contract address, wanted %s, got %s", want, got)
	}
}

func TestSimulation_CallsInstalledContract(t *testing.T) {
	sim := newTestSimulation(t)
	contract := TestContractAddress()
	sim.SetContract(contract, native.Code("simulation-store"), map[tosca.Key]tosca.Word{
		{}: tosca.Word(common.BigToHash(big.NewInt(3))),
	})

	result, err := sim.Call(TestCallerAddress(), contract, pack(t, "get"), tosca.Value{})
	if err != nil || !result.Success {
		t.Fatalf("call failed: %v, %v", result, err)
	}
	if want, got := common.BigToHash(big.NewInt(3)).Bytes(), []byte(result.Output); !bytes.Equal(want, got) {
		t.Errorf("unexpected output, wanted %x, got %x", want, got)
	}
}

func TestSimulation_DeployInstallsModule(t *testing.T) {
	sim := newTestSimulation(t)
	sender := TestCallerAddress()

	result, err := sim.Deploy(sender, native.InitCode("simulation-store"), tosca.Value{})
	if err != nil || !result.Success {
		t.Fatalf("deployment failed: %v, %v", result, err)
	}
	want := tosca.Address(crypto.CreateAddress(common.Address(sender), 0))
	if got := result.CreatedAddress; want != got {
		t.Errorf("unexpected address, wanted %v, got %v", want, got)
	}
	if code := sim.State().GetCode(want); !bytes.Equal(code, native.Code("simulation-store")) {
		t.Errorf("unexpected code at deployed address: %x", code)
	}

	result, err = sim.Call(sender, want, pack(t, "set", big.NewInt(5)), tosca.Value{})
	if err != nil || !result.Success {
		t.Fatalf("call of deployed contract failed: %v, %v", result, err)
	}
}

func TestSimulation_RevertIsReportedInResult(t *testing.T) {
	sim := newTestSimulation(t)
	contract := TestContractAddress()
	sim.SetContract(contract, native.Code("simulation-store"), nil)

	result, err := sim.Call(TestCallerAddress(), contract, pack(t, "fail"), tosca.Value{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success {
		t.Errorf("call should have reverted")
	}
	if want, got := "failed", string(result.Output); want != got {
		t.Errorf("unexpected revert data, wanted %q, got %q", want, got)
	}
}

func TestSimulation_ValueIsTransferred(t *testing.T) {
	sim := newTestSimulation(t)
	caller, contract := TestCallerAddress(), TestContractAddress()
	sim.SetContract(contract, native.Code("simulation-store"), nil)
	sim.State().SetBalance(caller, tosca.NewValue(10))

	result, err := sim.Call(caller, contract, pack(t, "set", big.NewInt(1)), tosca.NewValue(4))
	if err != nil || !result.Success {
		t.Fatalf("call failed: %v, %v", result, err)
	}
	if want, got := tosca.NewValue(6), sim.State().GetBalance(caller); want != got {
		t.Errorf("unexpected caller balance, wanted %v, got %v", want, got)
	}
	if want, got := tosca.NewValue(4), sim.State().GetBalance(contract); want != got {
		t.Errorf("unexpected contract balance, wanted %v, got %v", want, got)
	}
}

func TestSimulation_ForksAreIndependent(t *testing.T) {
	sim := newTestSimulation(t)
	contract := TestContractAddress()
	sim.SetContract(contract, native.Code("simulation-store"), nil)

	fork := sim.Fork()
	if _, err := fork.Call(TestCallerAddress(), contract, pack(t, "set", big.NewInt(9)), tosca.Value{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := sim.State().GetStorage(contract, tosca.Key{}); got != (tosca.Word{}) {
		t.Errorf("modification of fork is visible in original: %v", got)
	}
	if fork.Engine() == sim.Engine() {
		t.Errorf("fork shares engine with original")
	}
}

func TestSimulation_MissingInterpreterIsReported(t *testing.T) {
	sim := New(nil, cheatcodes.NewEngine(cheatcodes.Config{}))
	if _, err := sim.Call(TestCallerAddress(), TestContractAddress(), nil, tosca.Value{}); err == nil {
		t.Errorf("expected an error")
	}
}
