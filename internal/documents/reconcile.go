package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"interntrack-backend/internal/records"
	"interntrack-backend/internal/shared/metrics"
	"interntrack-backend/internal/shared/telemetry"
	"interntrack-backend/internal/shared/tracing"
)

// Reconciler writes verification outcomes into the record store.
type Reconciler struct {
	Store records.Store
}

func NewReconciler(store records.Store) *Reconciler {
	return &Reconciler{Store: store}
}

// Reconcile sets the docType column of (studentID, companyName) to Yes or No.
// A missing record is logged and skipped; it is never created here.
func (r *Reconciler) Reconcile(ctx context.Context, studentID, companyName string, docType DocumentType, verified bool) (err error) {
	ctx, span := tracer.Start(ctx, "documents.Reconcile", trace.WithAttributes(
		attribute.String("doc_type", string(docType)),
		attribute.Bool("verified", verified),
	))
	defer func() { tracing.End(span, err) }()

	docType = normalizeType(string(docType))
	if strings.TrimSpace(studentID) == "" {
		return ErrMissingStudentID
	}
	if docType == "" || docType == UnknownDocument {
		return fmt.Errorf("%w: docType is required", ErrInvalidInput)
	}

	value := records.No
	if verified {
		value = records.Yes
	}

	err = r.Store.SetField(ctx, studentID, companyName, string(docType), value)
	switch {
	case errors.Is(err, records.ErrNotFound):
		metrics.IncRecordsNotFound()
		telemetry.Warn("documents.record_not_found", map[string]any{
			"student_id":   studentID,
			"company_name": companyName,
			"doc_type":     string(docType),
		})
		return nil
	case err != nil:
		return fmt.Errorf("update record: %w", err)
	}

	metrics.IncRecordsUpdated()
	telemetry.Info("documents.record_updated", map[string]any{
		"student_id":   studentID,
		"company_name": companyName,
		"doc_type":     string(docType),
		"value":        value,
	})
	return nil
}
