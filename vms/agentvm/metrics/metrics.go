// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"time"

	utilmetric "github.com/luxfi/agentvm/utils/metric"
	"github.com/luxfi/agentvm/vms/agentvm/txs"
	"github.com/luxfi/metric"
)

var _ Metrics = (*metrics)(nil)

type Metrics interface {
	utilmetric.APIInterceptor

	// Mark that the given tx was executed and committed.
	MarkAccepted(*txs.Tx) error
	// Mark that the given tx failed and was discarded.
	MarkRejected(*txs.Tx)
	// Mark that a block of numTxs txs with the given timestamp took elapsed
	// to process.
	MarkBlock(timestamp time.Time, numTxs int, elapsed time.Duration)
}

func New(namespace string, registerer metric.Registerer) (Metrics, error) {
	txMetrics, err := newTxMetrics(namespace, registerer)
	errs := metric.Errs{Err: err}

	apiRequestMetrics, err := utilmetric.NewAPIInterceptor(namespace, registerer)
	errs.Add(err)

	m := &metrics{
		APIInterceptor: apiRequestMetrics,
		txMetrics:      txMetrics,
		txsAccepted: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "txs_accepted",
			Help:      "number of transactions accepted",
		}),
		txsRejected: metric.NewCounter(metric.CounterOpts{
			Namespace: namespace,
			Name:      "txs_rejected",
			Help:      "number of transactions rejected",
		}),
		lastBlockTime: metric.NewGauge(metric.GaugeOpts{
			Namespace: namespace,
			Name:      "last_block_timestamp",
			Help:      "Unix timestamp of the last processed block",
		}),
		blockTxs: metric.NewAveragerWithErrs(
			metric.AppendNamespace(namespace, "block_txs"),
			"txs per processed block",
			registerer,
			&errs,
		),
		blockProcessTime: metric.NewAveragerWithErrs(
			metric.AppendNamespace(namespace, "block_process_time"),
			"time (in ns) spent processing blocks",
			registerer,
			&errs,
		),
	}

	errs.Add(
		registerer.Register(m.txsAccepted),
		registerer.Register(m.txsRejected),
		registerer.Register(m.lastBlockTime),
	)
	return m, errs.Err
}

type metrics struct {
	utilmetric.APIInterceptor

	txMetrics *txMetrics

	txsAccepted      metric.Counter
	txsRejected      metric.Counter
	lastBlockTime    metric.Gauge
	blockTxs         metric.Averager
	blockProcessTime metric.Averager
}

func (m *metrics) MarkAccepted(tx *txs.Tx) error {
	m.txsAccepted.Inc()
	return tx.Visit(m.txMetrics)
}

func (m *metrics) MarkRejected(*txs.Tx) {
	m.txsRejected.Inc()
}

func (m *metrics) MarkBlock(timestamp time.Time, numTxs int, elapsed time.Duration) {
	m.lastBlockTime.Set(float64(timestamp.Unix()))
	m.blockTxs.Observe(float64(numTxs))
	m.blockProcessTime.Observe(float64(elapsed))
}
