package metrics

import (
	"strconv"
	"strings"
	"time"
)

// Webhook outcomes.
const (
	OutcomeForwarded = "forwarded"
	OutcomeIgnored   = "ignored"
	OutcomeDeduped   = "deduped"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeEmpty     = "empty"
)

// ReasonClass strips the variable suffix from an ignore reason so label
// cardinality stays bounded: "author_ignored:bob" becomes "author_ignored".
func ReasonClass(reason string) string {
	if i := strings.IndexByte(reason, ':'); i >= 0 {
		return reason[:i]
	}
	return reason
}

func RecordWebhook(outcome, reason string) {
	globalManager.webhookOutcomes.WithLabelValues(outcome, ReasonClass(reason)).Inc()
}

func RecordForwardFailure(path, kind string) {
	globalManager.forwardFailures.WithLabelValues(path, kind).Inc()
}

func RecordScheduledRun(outcome string) {
	globalManager.scheduledRuns.WithLabelValues(outcome).Inc()
}

func RecordItemsForwarded(path string, n int) {
	globalManager.itemsForwarded.WithLabelValues(path).Add(float64(n))
}

func RecordSubmission(processed, rejected int) {
	globalManager.submissions.WithLabelValues("processed").Add(float64(processed))
	globalManager.submissions.WithLabelValues("rejected").Add(float64(rejected))
}

func ObserveStore(op string, start time.Time) {
	globalManager.storeLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	globalManager.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	globalManager.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func RecordSweep(n int64) {
	globalManager.sweptFingerprints.Add(float64(n))
}
