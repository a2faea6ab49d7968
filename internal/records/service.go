package records

import (
	"context"
	"strings"

	"interntrack-backend/internal/shared/telemetry"
)

// Service exposes internship record management on top of a Store.
type Service struct {
	Store Store
	// Protected columns are only written by document verification; Add and
	// Update drop them from caller payloads.
	Protected map[string]bool
}

func NewService(store Store, protected ...string) *Service {
	p := make(map[string]bool, len(protected))
	for _, col := range protected {
		p[col] = true
	}
	return &Service{Store: store, Protected: p}
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.Store.List(ctx)
}

// ListByStudent returns the records of one student in store order.
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]Record, error) {
	all, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	studentID = strings.TrimSpace(studentID)
	out := []Record{}
	for _, r := range all {
		if strings.TrimSpace(r.StudentID) == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Add creates a record, failing with ErrAlreadyExists on a duplicate key.
func (s *Service) Add(ctx context.Context, rec Record) (Record, error) {
	rec, err := validate(rec)
	if err != nil {
		return Record{}, err
	}
	rec.Fields = s.strip(rec.StudentID, rec.Fields)
	if err := s.Store.Create(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Update merges fields into an existing record. Key columns cannot change.
func (s *Service) Update(ctx context.Context, studentID, companyName string, fields map[string]string) (Record, error) {
	return s.Store.Update(ctx, studentID, companyName, s.strip(studentID, fields))
}

func (s *Service) strip(studentID string, fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	var dropped []string
	for k, v := range fields {
		if s.Protected[k] {
			dropped = append(dropped, k)
			continue
		}
		out[k] = v
	}
	if len(dropped) > 0 {
		telemetry.Warn("records.protected_fields_dropped", map[string]any{
			"student_id": studentID,
			"fields":     dropped,
		})
	}
	return out
}
