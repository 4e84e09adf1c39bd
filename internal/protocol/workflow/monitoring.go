package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exchangesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pksalink_exchanges_started_total",
		Help: "Exchanges submitted, by kind.",
	}, []string{"kind"})
	exchangeOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pksalink_exchange_outcomes_total",
		Help: "Exchanges resolved, by kind and terminal state.",
	}, []string{"kind", "state"})
	reattachesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pksalink_exchange_reattaches_total",
		Help: "Reattach attempts after a reconnect, by result.",
	}, []string{"result"})
)
