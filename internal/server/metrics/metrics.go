// Package metrics exposes Prometheus counters for token issuance,
// redemption and the ledger. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	tokensIssued   prometheus.Counter
	tokensVoided   prometheus.Counter
	redemptions    *prometheus.CounterVec
	blocksAppended prometheus.Counter
	verifications  *prometheus.CounterVec
	chainLength    prometheus.Gauge
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		tokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "classmint_tokens_issued_total",
			Help: "number of reward tokens issued",
		}),
		tokensVoided: factory.NewCounter(prometheus.CounterOpts{
			Name: "classmint_tokens_voided_total",
			Help: "number of tokens moved from ACTIVE to VOID",
		}),
		redemptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "classmint_redemptions_total",
			Help: "redemption attempts by result tag",
		}, []string{"result"}),
		blocksAppended: factory.NewCounter(prometheus.CounterOpts{
			Name: "classmint_ledger_blocks_appended_total",
			Help: "number of blocks appended to the ledger",
		}),
		verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "classmint_ledger_verifications_total",
			Help: "ledger verification runs by outcome",
		}, []string{"result"}),
		chainLength: factory.NewGauge(prometheus.GaugeOpts{
			Name: "classmint_ledger_length",
			Help: "number of blocks seen by the last verification",
		}),
	}
}

func (m *Metrics) TokenIssued() {
	if m != nil {
		m.tokensIssued.Inc()
	}
}

func (m *Metrics) TokenVoided() {
	if m != nil {
		m.tokensVoided.Inc()
	}
}

// Redemption counts one attempt under its result tag.
func (m *Metrics) Redemption(tag string) {
	if m != nil {
		m.redemptions.WithLabelValues(tag).Inc()
	}
}

func (m *Metrics) BlockAppended() {
	if m != nil {
		m.blocksAppended.Inc()
	}
}

// Verification records a verifier run and the chain length it covered.
func (m *Metrics) Verification(ok bool, length int64) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "broken"
	}
	m.verifications.WithLabelValues(result).Inc()
	m.chainLength.Set(float64(length))
}

// Handler serves the registry in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
