package students

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("student not found")
	ErrNoFolder = errors.New("student has no storage folder")
)

type Repo interface {
	Upsert(ctx context.Context, student Student) error
	GetByID(ctx context.Context, studentID string) (Student, error)
}
