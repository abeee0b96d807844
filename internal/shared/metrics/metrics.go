package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	assessmentStartedTotal   atomic.Uint64
	assessmentCompletedTotal atomic.Uint64
	assessmentFailedTotal    atomic.Uint64

	scanJobsReceivedTotal    atomic.Uint64
	scanJobsCompletedTotal   atomic.Uint64
	scanJobsFailedTotal      atomic.Uint64
	scanJobsUnrecoverableTot atomic.Uint64

	assessmentDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	scanDuration       = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})
)

// IncAssessmentStarted increments the started counter.
func IncAssessmentStarted() {
	assessmentStartedTotal.Add(1)
}

// IncAssessmentCompleted increments the completed counter.
func IncAssessmentCompleted() {
	assessmentCompletedTotal.Add(1)
}

// IncAssessmentFailed increments the failed counter.
func IncAssessmentFailed() {
	assessmentFailedTotal.Add(1)
}

// ObserveAssessmentDurationMs records an assessment stream duration in milliseconds.
func ObserveAssessmentDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	assessmentDuration.Observe(value)
}

// IncScanJobsReceived increments the received scan job counter.
func IncScanJobsReceived() {
	scanJobsReceivedTotal.Add(1)
}

// IncScanJobsCompleted increments the completed scan job counter.
func IncScanJobsCompleted() {
	scanJobsCompletedTotal.Add(1)
}

// IncScanJobsFailed increments the failed scan job counter.
func IncScanJobsFailed() {
	scanJobsFailedTotal.Add(1)
}

// IncScanJobsDeletedUnrecoverable counts malformed jobs dropped without processing.
func IncScanJobsDeletedUnrecoverable() {
	scanJobsUnrecoverableTot.Add(1)
}

// ObserveScanDurationMs records a scan job duration in milliseconds.
func ObserveScanDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	scanDuration.Observe(value)
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
	writeCounter(&buf, "assessment_started_total", "Total assessment streams started", assessmentStartedTotal.Load())
	writeCounter(&buf, "assessment_completed_total", "Total assessment streams completed", assessmentCompletedTotal.Load())
	writeCounter(&buf, "assessment_failed_total", "Total assessment streams failed", assessmentFailedTotal.Load())
	writeCounter(&buf, "scan_jobs_received_total", "Total scan jobs received", scanJobsReceivedTotal.Load())
	writeCounter(&buf, "scan_jobs_completed_total", "Total scan jobs completed", scanJobsCompletedTotal.Load())
	writeCounter(&buf, "scan_jobs_failed_total", "Total scan jobs failed", scanJobsFailedTotal.Load())
	writeCounter(&buf, "scan_jobs_deleted_unrecoverable_total", "Total malformed scan jobs dropped", scanJobsUnrecoverableTot.Load())
	writeHistogram(&buf, "assessment_duration_ms", "Assessment stream duration in milliseconds", assessmentDuration.Snapshot())
	writeHistogram(&buf, "scan_duration_ms", "Scan job duration in milliseconds", scanDuration.Snapshot())
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

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
