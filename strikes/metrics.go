package strikes

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var strikesAppliedCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vortex_strikes_applied",
	Help: "Total number of strikes added to ledgers",
})

var punishmentCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vortex_punishments_executed",
	Help: "Number of punishment actions executed",
}, []string{"action"})

var sweepRevertCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vortex_sweep_reverts",
	Help: "Number of expired temporary punishments reverted",
}, []string{"kind"})
