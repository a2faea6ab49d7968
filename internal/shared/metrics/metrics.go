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
	uploadsTotal         atomic.Uint64
	uploadFailuresTotal  atomic.Uint64
	verifiedTotal        atomic.Uint64
	rejectedTotal        atomic.Uint64
	verifyErrorsTotal    atomic.Uint64
	renamesTotal         atomic.Uint64
	renameFailuresTotal  atomic.Uint64
	recordsNotFoundTotal atomic.Uint64
	recordsUpdatedTotal  atomic.Uint64
	panicsTotal          atomic.Uint64

	verifyDuration = newHistogram([]float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000})
)

// IncUploads counts a document stored in the blob store.
func IncUploads() { uploadsTotal.Add(1) }

// IncUploadFailures counts a failed blob create.
func IncUploadFailures() { uploadFailuresTotal.Add(1) }

// IncVerified counts a verification that passed.
func IncVerified() { verifiedTotal.Add(1) }

// IncRejected counts a verification that completed but did not pass.
func IncRejected() { rejectedTotal.Add(1) }

// IncVerifyErrors counts verifications aborted by download or extraction failures.
func IncVerifyErrors() { verifyErrorsTotal.Add(1) }

func IncRenames() { renamesTotal.Add(1) }

func IncRenameFailures() { renameFailuresTotal.Add(1) }

func IncRecordsNotFound() { recordsNotFoundTotal.Add(1) }

func IncRecordsUpdated() { recordsUpdatedTotal.Add(1) }

// IncPanic counts handler panics caught by the recovery middleware.
func IncPanic() { panicsTotal.Add(1) }

// ObserveVerifyDurationMs records a verification duration in milliseconds.
func ObserveVerifyDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	verifyDuration.Observe(value)
}

// Snapshot returns the current counter values keyed by metric name.
func Snapshot() map[string]uint64 {
	return map[string]uint64{
		"documents_uploaded_total":      uploadsTotal.Load(),
		"documents_upload_failed_total": uploadFailuresTotal.Load(),
		"documents_verified_total":      verifiedTotal.Load(),
		"documents_rejected_total":      rejectedTotal.Load(),
		"documents_verify_errors_total": verifyErrorsTotal.Load(),
		"documents_renamed_total":       renamesTotal.Load(),
		"documents_rename_failed_total": renameFailuresTotal.Load(),
		"records_not_found_total":       recordsNotFoundTotal.Load(),
		"records_updated_total":         recordsUpdatedTotal.Load(),
		"http_panics_total":             panicsTotal.Load(),
	}
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
	writeCounter(&buf, "documents_uploaded_total", "Documents stored in the blob store", uploadsTotal.Load())
	writeCounter(&buf, "documents_upload_failed_total", "Document uploads that failed", uploadFailuresTotal.Load())
	writeCounter(&buf, "documents_verified_total", "Documents that passed verification", verifiedTotal.Load())
	writeCounter(&buf, "documents_rejected_total", "Documents that failed verification", rejectedTotal.Load())
	writeCounter(&buf, "documents_verify_errors_total", "Verifications aborted by download or extraction errors", verifyErrorsTotal.Load())
	writeCounter(&buf, "documents_renamed_total", "Corrective renames applied", renamesTotal.Load())
	writeCounter(&buf, "documents_rename_failed_total", "Corrective renames that failed", renameFailuresTotal.Load())
	writeCounter(&buf, "records_not_found_total", "Reconciliations without a matching record", recordsNotFoundTotal.Load())
	writeCounter(&buf, "records_updated_total", "Record fields written by reconciliation", recordsUpdatedTotal.Load())
	writeCounter(&buf, "http_panics_total", "Handler panics recovered", panicsTotal.Load())
	writeHistogram(&buf, "verify_duration_ms", "Verification duration in milliseconds", verifyDuration.Snapshot())
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
	// counts are per bucket; writeHistogram accumulates them
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
