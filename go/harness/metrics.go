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
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skribe"

// Metrics counts the tests and examples run by a Runner. A nil Metrics
// records nothing.
type Metrics struct {
	tests    *prometheus.CounterVec
	examples *prometheus.CounterVec
}

// NewMetrics creates the run metrics and registers them with the given
// registerer, if it is not nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	res := &Metrics{
		tests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tests_total",
			Help:      "Number of completed tests by status.",
		}, []string{"status"}),
		examples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "examples_total",
			Help:      "Number of executed examples by outcome.",
		}, []string{"outcome"}),
	}
	if registerer != nil {
		for _, collector := range []prometheus.Collector{res.tests, res.examples} {
			if err := registerer.Register(collector); err != nil {
				log.Warn("unable to register metric", "err", err)
			}
		}
	}
	return res
}

func (m *Metrics) test(status Status) {
	if m != nil {
		m.tests.WithLabelValues(status.String()).Inc()
	}
}

func (m *Metrics) example(outcome outcome) {
	if m != nil {
		m.examples.WithLabelValues(outcome.String()).Inc()
	}
}
