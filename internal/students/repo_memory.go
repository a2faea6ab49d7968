package students

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu       sync.RWMutex
	students map[string]Student
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{students: make(map[string]Student)}
}

func (r *MemoryRepo) Upsert(ctx context.Context, student Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.students[student.ID]
	now := time.Now().UTC()
	if !ok {
		student.CreatedAt = now
	} else {
		student.CreatedAt = existing.CreatedAt
	}
	student.UpdatedAt = now
	r.students[student.ID] = student
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, studentID string) (Student, error) {
	if err := ctx.Err(); err != nil {
		return Student{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	student, ok := r.students[studentID]
	if !ok {
		return Student{}, ErrNotFound
	}
	return student, nil
}

var _ Repo = (*MemoryRepo)(nil)
