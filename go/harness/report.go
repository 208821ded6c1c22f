// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package harness

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"
	"github.com/dsnet/golib/unitconv"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

type Status int

const (
	Passed Status = iota
	Failed
)

func (s Status) String() string {
	switch s {
	case Passed:
		return "passed"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type outcome int

const (
	pass outcome = iota
	fail
	discard
)

func (o outcome) String() string {
	switch o {
	case pass:
		return "pass"
	case fail:
		return "fail"
	case discard:
		return "discard"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result summarizes the run of a single test.
type Result struct {
	Contract string
	Test     string
	Status   Status
	// Examples is the number of passed examples.
	Examples int
	Discards int
	// Err is the cause of a failure.
	Err error
	// Counterexample are the arguments of the failing example.
	Counterexample []any
	inputs         abi.Arguments
}

func (r Result) ID() string {
	return r.Contract + "." + r.Test
}

func (r Result) String() string {
	if r.Status == Passed {
		return fmt.Sprintf("PASS %s (examples: %d, discards: %d)", r.ID(), r.Examples, r.Discards)
	}
	res := fmt.Sprintf("FAIL %s: %v", r.ID(), r.Err)
	if len(r.Counterexample) > 0 {
		res += "\ncounterexample:\n" + r.FormatCounterexample()
	}
	return res
}

var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// FormatCounterexample renders the arguments of the failing example, one
// line per argument.
func (r Result) FormatCounterexample() string {
	var builder strings.Builder
	for i, value := range r.Counterexample {
		name := fmt.Sprintf("arg%d", i)
		if i < len(r.inputs) && r.inputs[i].Name != "" {
			name = r.inputs[i].Name
		}
		builder.WriteString(fmt.Sprintf("  %s = %s", name, spewConfig.Sdump(value)))
	}
	return builder.String()
}

// Report is the outcome of a test run.
type Report struct {
	// Results are in the order of the tested contracts and their tests.
	Results  []Result
	Duration time.Duration
}

func (r *Report) Failed() []Result {
	var res []Result
	for _, result := range r.Results {
		if result.Status == Failed {
			res = append(res, result)
		}
	}
	return res
}

func (r *Report) Examples() int {
	res := 0
	for _, result := range r.Results {
		res += result.Examples + result.Discards
	}
	return res
}

func (r *Report) Summary() string {
	failed := len(r.Failed())
	rate := 0.0
	if seconds := r.Duration.Seconds(); seconds > 0 {
		rate = float64(r.Examples()) / seconds
	}
	return fmt.Sprintf(
		"%d passed, %d failed, %d examples in %v (~%s examples per second)",
		len(r.Results)-failed, failed, r.Examples(), r.Duration.Round(time.Millisecond),
		unitconv.FormatPrefix(rate, unitconv.SI, 0),
	)
}

// formatRevert renders revert data, decoding Error(string) reasons.
func formatRevert(data []byte) string {
	if reason, err := abi.UnpackRevert(data); err == nil {
		return fmt.Sprintf("%q", reason)
	}
	if len(data) > 0 && utf8.Valid(data) && strings.IndexFunc(string(data), func(r rune) bool { return !unicode.IsPrint(r) }) < 0 {
		return fmt.Sprintf("%q", data)
	}
	return fmt.Sprintf("0x%x", data)
}
