package automod

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var messagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vortex_automod_messages_processed",
	Help: "Number of messages evaluated by the automod engine",
})

var messagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vortex_automod_messages_skipped",
	Help: "Number of messages skipped by the eligibility filter",
})

var messagesDeleted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vortex_automod_messages_deleted",
	Help: "Number of messages deleted by the automod engine",
})

var detectorHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vortex_automod_detector_hits",
	Help: "Number of detector hits, by detector name",
}, []string{"detector"})

var detectorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vortex_automod_detector_errors",
	Help: "Number of panics recovered from detectors, by detector name",
}, []string{"detector"})

var raidModeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vortex_automod_raidmode_transitions",
	Help: "Number of raid mode state transitions, by direction",
}, []string{"direction"})

var raidKicks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vortex_automod_raid_kicks",
	Help: "Number of members kicked while raid mode was active",
})

var asyncJobsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vortex_automod_async_jobs_dropped",
	Help: "Number of async resolution jobs dropped due to a full queue",
})

var asyncJobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
	Name: "vortex_automod_async_jobs_enqueued",
	Help: "Number of async resolution jobs enqueued",
})
