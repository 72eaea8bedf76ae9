package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	documentUploadedTotal    atomic.Uint64
	documentCompletedTotal   atomic.Uint64
	documentNeedsReviewTotal atomic.Uint64
	documentDuplicateTotal   atomic.Uint64
	documentReclaimedTotal   atomic.Uint64

	verificationStartedTotal   atomic.Uint64
	verificationFinalizedTotal atomic.Uint64
	discrepancyDetectedTotal   atomic.Uint64

	overrideCreatedTotal  atomic.Uint64
	overrideResolvedTotal atomic.Uint64

	documentJobsReceivedTotal      atomic.Uint64
	documentJobsCompletedTotal     atomic.Uint64
	documentJobsFailedTotal        atomic.Uint64
	documentJobsUnrecoverableTotal atomic.Uint64

	documentProcessingDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
	analyzerRequestDuration    = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncDocumentUploaded increments the accepted-upload counter.
func IncDocumentUploaded() {
	documentUploadedTotal.Add(1)
}

// IncDocumentCompleted increments the completed-document counter.
func IncDocumentCompleted() {
	documentCompletedTotal.Add(1)
}

// IncDocumentNeedsReview increments the needs-review counter.
func IncDocumentNeedsReview() {
	documentNeedsReviewTotal.Add(1)
}

// IncDocumentDuplicate increments the duplicate-rejection counter.
func IncDocumentDuplicate() {
	documentDuplicateTotal.Add(1)
}

// IncDocumentReclaimed increments the stuck-processing-reclaim counter.
func IncDocumentReclaimed() {
	documentReclaimedTotal.Add(1)
}

// IncVerificationStarted increments the verification-started counter.
func IncVerificationStarted() {
	verificationStartedTotal.Add(1)
}

// IncVerificationFinalized increments the verification-finalized counter.
func IncVerificationFinalized() {
	verificationFinalizedTotal.Add(1)
}

// IncDiscrepancyDetected increments the income-discrepancy counter.
func IncDiscrepancyDetected() {
	discrepancyDetectedTotal.Add(1)
}

// IncOverrideCreated increments the override-request counter.
func IncOverrideCreated() {
	overrideCreatedTotal.Add(1)
}

// IncOverrideResolved increments the override-resolution counter.
func IncOverrideResolved() {
	overrideResolvedTotal.Add(1)
}

// IncDocumentJobsReceived increments the queue-messages-received counter.
func IncDocumentJobsReceived() {
	documentJobsReceivedTotal.Add(1)
}

// IncDocumentJobsCompleted increments the queue-jobs-completed counter.
func IncDocumentJobsCompleted() {
	documentJobsCompletedTotal.Add(1)
}

// IncDocumentJobsFailed increments the queue-jobs-failed counter.
func IncDocumentJobsFailed() {
	documentJobsFailedTotal.Add(1)
}

// IncDocumentJobsUnrecoverable increments the counter for messages deleted
// without processing because they could never succeed.
func IncDocumentJobsUnrecoverable() {
	documentJobsUnrecoverableTotal.Add(1)
}

// ObserveDocumentProcessingMs records an end-to-end pipeline duration in milliseconds.
func ObserveDocumentProcessingMs(value float64) {
	if value < 0 {
		value = 0
	}
	documentProcessingDuration.Observe(value)
}

// ObserveAnalyzerRequestMs records one analyzer round trip in milliseconds.
func ObserveAnalyzerRequestMs(value float64) {
	if value < 0 {
		value = 0
	}
	analyzerRequestDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "document_uploaded_total", "Total income documents accepted for processing", documentUploadedTotal.Load())
	writeCounter(&buf, "document_completed_total", "Total income documents completed", documentCompletedTotal.Load())
	writeCounter(&buf, "document_needs_review_total", "Total income documents routed to admin review", documentNeedsReviewTotal.Load())
	writeCounter(&buf, "document_duplicate_total", "Total income documents rejected as duplicates", documentDuplicateTotal.Load())
	writeCounter(&buf, "document_reclaimed_total", "Total stuck documents reclaimed by the sweeper", documentReclaimedTotal.Load())
	writeCounter(&buf, "verification_started_total", "Total verifications started", verificationStartedTotal.Load())
	writeCounter(&buf, "verification_finalized_total", "Total verifications finalized", verificationFinalizedTotal.Load())
	writeCounter(&buf, "discrepancy_detected_total", "Total declared-vs-verified discrepancies detected", discrepancyDetectedTotal.Load())
	writeCounter(&buf, "override_created_total", "Total override requests created", overrideCreatedTotal.Load())
	writeCounter(&buf, "override_resolved_total", "Total override requests resolved", overrideResolvedTotal.Load())
	writeCounter(&buf, "document_jobs_received_total", "Total document jobs received from the queue", documentJobsReceivedTotal.Load())
	writeCounter(&buf, "document_jobs_completed_total", "Total document jobs processed and acknowledged", documentJobsCompletedTotal.Load())
	writeCounter(&buf, "document_jobs_failed_total", "Total document jobs left for redelivery after a failure", documentJobsFailedTotal.Load())
	writeCounter(&buf, "document_jobs_unrecoverable_total", "Total document jobs dropped as undecodable or incomplete", documentJobsUnrecoverableTotal.Load())
	writeHistogram(&buf, "document_processing_duration_ms", "Document pipeline duration in milliseconds", documentProcessingDuration.Snapshot())
	writeHistogram(&buf, "analyzer_request_duration_ms", "Analyzer round-trip duration in milliseconds", analyzerRequestDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
