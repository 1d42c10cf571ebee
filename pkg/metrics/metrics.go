// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequests counts inbound webhook requests, by outcome.
	WebhookRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slackxapi",
		Name:      "webhook_requests_total",
		Help:      "Inbound Slack webhook requests, by outcome.",
	}, []string{"outcome"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "slackxapi",
		Name:      "queue_depth",
		Help:      "Slack payloads waiting for a worker.",
	})

	// Statements counts processed payloads, by outcome
	// ("built", "no_actor", "no_verb", "no_object", "error").
	Statements = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slackxapi",
		Name:      "statements_total",
		Help:      "Processed Slack payloads, by statement outcome.",
	}, []string{"outcome"})

	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slackxapi",
		Name:      "lrs_delivery_attempts_total",
		Help:      "HTTP requests sent to LRS targets.",
	}, []string{"lrs"})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "slackxapi",
		Name:      "lrs_deliveries_total",
		Help:      "Statement deliveries to LRS targets, by final result.",
	}, []string{"lrs", "result"})

	ProvisionedActors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "slackxapi",
		Name:      "provisioned_actors_total",
		Help:      "xAPI actors created automatically from Slack profiles.",
	})
)
