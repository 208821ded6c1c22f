// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tosca

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package tosca

// Interpreter is a component capable of executing contract code. Recursive
// calls issued by the executed code are forwarded to the RunContext in the
// parameters, which is responsible for dispatching them.
// To obtain an Interpreter instance, client code should use NewInterpreter()
// provided by the registry file in this package.
type Interpreter interface {
	// Run executes the code provided by the parameters in the specified context
	// and returns the processing result. The resulting error is nil whenever the
	// code was correctly executed, even if the execution ended in a revert. A
	// non-nil error aborts the whole run; it is used by the run context to
	// propagate harness-level failures through the interpreter.
	Run(Parameters) (Result, error)
}

// Parameters summarizes the list of input parameters required for executing code.
type Parameters struct {
	BlockParameters
	Context   RunContext
	Kind      CallKind
	Static    bool
	Depth     int
	Gas       Gas
	Recipient Address
	Sender    Address
	Input     Data
	Value     Value
	CodeHash  *Hash
	Code      Code
}

// BlockParameters contains information about the current block.
type BlockParameters struct {
	ChainID     uint64
	BlockNumber uint64
	Timestamp   uint64
	BaseFee     Value
}

// Result summarizes the result of a code execution.
type Result struct {
	Success bool // false if the execution ended in a revert, true otherwise
	Output  Data
	GasLeft Gas
}

// TransactionContext extends the WorldState by the infrastructure needed to
// run a sequence of calls: snapshots to roll back failed calls and the list
// of logs emitted so far.
type TransactionContext interface {
	WorldState

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)

	EmitLog(Log)
	GetLogs() []Log
}

// RunContext provides an interface to access and manipulate state and to
// issue recursive calls, as needed by code executed by an Interpreter.
type RunContext interface {
	TransactionContext

	Call(kind CallKind, parameter CallParameters) (CallResult, error)
}

// BlockContext is implemented by run contexts whose block parameters may be
// modified while code is running. Interpreters should prefer the current
// parameters over the ones captured in their Parameters.
type BlockContext interface {
	CurrentBlockParameters() BlockParameters
}

// Snapshot is a type used to represent a snapshot of the world state in a
// transaction context.
type Snapshot int

type CallParameters struct {
	Sender      Address
	Recipient   Address // < not relevant for CREATE and CREATE2
	Value       Value   // < ignored by static calls, considered to be 0
	Input       Data
	Gas         Gas
	Salt        Hash // < only relevant for CREATE2 calls
	CodeAddress Address
}

type CallResult struct {
	Output         Data
	GasLeft        Gas
	CreatedAddress Address // < only meaningful for CREATE and CREATE2
	Success        bool    // false if the execution ended in a revert, true otherwise
}
