// Package observability exposes Prometheus metrics for the listing service:
// pipeline stage outcomes and latency, credit flow, and live workflow count.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Pipeline Metrics ───────────────────────────────────────────────────────

// StageRuns counts stage executions by stage name and outcome
// (ok, malformed, unavailable, prerequisite, error).
var StageRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "listforge",
	Subsystem: "pipeline",
	Name:      "stage_runs_total",
	Help:      "Total pipeline stage executions by stage and outcome.",
}, []string{"stage", "outcome"})

// StageDuration observes wall-clock stage latency, dominated by the
// external model call.
var StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "listforge",
	Subsystem: "pipeline",
	Name:      "stage_duration_seconds",
	Help:      "Stage execution latency in seconds.",
	Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
}, []string{"stage"})

// ─── Credit Metrics ─────────────────────────────────────────────────────────

// CreditsRedeemed counts credits added through voucher redemption.
var CreditsRedeemed = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "listforge",
	Subsystem: "ledger",
	Name:      "credits_redeemed_total",
	Help:      "Total credits added via voucher redemption.",
})

// CreditsCharged counts credits debited for billable operations.
var CreditsCharged = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "listforge",
	Subsystem: "ledger",
	Name:      "credits_charged_total",
	Help:      "Total credits debited for billable operations.",
})

// CreditsRefunded counts credits returned after failed operations.
var CreditsRefunded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "listforge",
	Subsystem: "ledger",
	Name:      "credits_refunded_total",
	Help:      "Total credits refunded after failed operations.",
})

// ChargesRejected counts charges rejected for insufficient balance.
var ChargesRejected = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "listforge",
	Subsystem: "ledger",
	Name:      "charges_rejected_total",
	Help:      "Total charges rejected with insufficient credit.",
})

// ─── Workflow Metrics ───────────────────────────────────────────────────────

// ActiveWorkflows tracks workflows currently held in memory.
var ActiveWorkflows = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "listforge",
	Subsystem: "session",
	Name:      "active_workflows",
	Help:      "Number of in-progress workflow sessions.",
})

// WorkflowsExported counts workflows that reached the terminal phase.
var WorkflowsExported = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "listforge",
	Subsystem: "session",
	Name:      "workflows_exported_total",
	Help:      "Total workflows exported as listing bundles.",
})
