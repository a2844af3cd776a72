package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OUTCOME_PROCESSED         = "processed"
	OUTCOME_DUPLICATE         = "duplicate"
	OUTCOME_IN_FLIGHT         = "in_flight"
	OUTCOME_IGNORED           = "ignored"
	OUTCOME_MISSING_SIGNATURE = "missing_signature"
	OUTCOME_BAD_SIGNATURE     = "bad_signature"
	OUTCOME_MALFORMED         = "malformed"
	OUTCOME_FAILED            = "failed"
)

var webhookEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "marketclub",
		Name:      "webhook_events_total",
		Help:      "Payment provider webhook deliveries by transaction status and outcome.",
	},
	[]string{"status", "outcome"},
)

func count(status string, outcome string) {
	if status == "" {
		status = "unknown"
	}
	webhookEvents.WithLabelValues(status, outcome).Inc()
}
