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
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/skribe-dev/skribe/go/tosca"
)

// RearmPolicy defines how arming an expectation is handled while one of the
// same kind is still pending.
type RearmPolicy int

const (
	// Replace silently drops the pending expectation.
	Replace RearmPolicy = iota
	// Reject fails the arming cheatcode with ErrInvalidArgument.
	Reject
)

func (p RearmPolicy) String() string {
	switch p {
	case Replace:
		return "replace"
	case Reject:
		return "reject"
	default:
		return fmt.Sprintf("RearmPolicy(%d)", int(p))
	}
}

func ParseRearmPolicy(name string) (RearmPolicy, error) {
	switch strings.ToLower(name) {
	case "", "replace":
		return Replace, nil
	case "reject":
		return Reject, nil
	}
	return 0, fmt.Errorf("unknown re-arm policy %q", name)
}

// emitExpectation is armed by expectEmit. The logs emitted between arming and
// the next call of the owner are the expected logs of that call.
type emitExpectation struct {
	owner   Issuer
	armedAt int
}

type revertExpectation struct {
	owner Issuer
}

// Expectations holds at most one pending expectation of each kind.
type Expectations struct {
	emit   *emitExpectation
	revert *revertExpectation
}

func (e Expectations) EmitPending() bool {
	return e.emit != nil
}

func (e Expectations) RevertPending() bool {
	return e.revert != nil
}

// emitClaim is the part of an emit expectation carried by the call that
// consumed it.
type emitClaim struct {
	expected []tosca.Log
	start    int
}

// claim removes the expectations owned by the issuer. The given logs are all
// logs emitted in the run so far.
func (e *Expectations) claim(issuer Issuer, logs []tosca.Log) (*emitClaim, bool) {
	var emit *emitClaim
	if e.emit != nil && e.emit.owner == issuer {
		from := min(e.emit.armedAt, len(logs))
		emit = &emitClaim{
			expected: logs[from:],
			start:    len(logs),
		}
		e.emit = nil
	}
	revert := false
	if e.revert != nil && e.revert.owner == issuer {
		revert = true
		e.revert = nil
	}
	return emit, revert
}

// check compares the logs emitted by the consuming call with the expected ones.
func (c *emitClaim) check(logs []tosca.Log) error {
	var actual []tosca.Log
	if c.start < len(logs) {
		actual = logs[c.start:]
	}
	if len(c.expected) == 0 {
		return fmt.Errorf("no log was emitted before the call, observed %d log(s) during the call", len(actual))
	}
	if len(actual) == len(c.expected) {
		match := true
		for i := range actual {
			match = match && actual[i].Equal(c.expected[i])
		}
		if match {
			return nil
		}
	}
	return fmt.Errorf("logs differ\n%s", diffLogs(c.expected, actual))
}

func diffLogs(expected, actual []tosca.Log) string {
	render := func(logs []tosca.Log) []string {
		res := make([]string, 0, len(logs))
		for _, log := range logs {
			res = append(res, renderLog(log)+"\n")
		}
		return res
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        render(expected),
		B:        render(actual),
		FromFile: "expected",
		ToFile:   "actual",
		Context:  3,
	})
	if err != nil {
		return fmt.Sprintf("expected %v, got %v", expected, actual)
	}
	return diff
}

// renderLog prints the matched parts of a log, the emitter is not compared.
func renderLog(log tosca.Log) string {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.String())
	}
	return fmt.Sprintf("topics: [%s], data: 0x%x", strings.Join(topics, ", "), []byte(log.Data))
}
