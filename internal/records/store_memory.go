package records

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryStore keeps records in insertion order.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []Record
}

func NewMemoryStore(seed ...Record) *MemoryStore {
	s := &MemoryStore{}
	for _, r := range seed {
		s.rows = append(s.rows, r.clone())
	}
	return s
}

func (s *MemoryStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r.clone())
	}
	return out, nil
}

func (s *MemoryStore) Find(ctx context.Context, studentID, companyName string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(studentID, companyName); i >= 0 {
		return s.rows[i].clone(), nil
	}
	return Record{}, ErrNotFound
}

func (s *MemoryStore) SetField(ctx context.Context, studentID, companyName, field, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if field == ColumnStudentID || field == ColumnCompany || strings.TrimSpace(field) == "" {
		return fmt.Errorf("%w: cannot set column %q", ErrInvalidRecord, field)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(studentID, companyName)
	if i < 0 {
		return ErrNotFound
	}
	if s.rows[i].Fields == nil {
		s.rows[i].Fields = map[string]string{}
	}
	s.rows[i].Fields[field] = value
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := validate(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index(rec.StudentID, rec.CompanyName) >= 0 {
		return ErrAlreadyExists
	}
	s.rows = append(s.rows, rec)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, studentID, companyName string, fields map[string]string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(studentID, companyName)
	if i < 0 {
		return Record{}, ErrNotFound
	}
	if s.rows[i].Fields == nil {
		s.rows[i].Fields = map[string]string{}
	}
	for k, v := range mutableFields(fields) {
		s.rows[i].Fields[k] = v
	}
	return s.rows[i].clone(), nil
}

func (s *MemoryStore) index(studentID, companyName string) int {
	for i, r := range s.rows {
		if r.Matches(studentID, companyName) {
			return i
		}
	}
	return -1
}

var _ Store = (*MemoryStore)(nil)
