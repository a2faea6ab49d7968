package students

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"interntrack-backend/internal/shared/telemetry"
)

// FolderCreator creates (or finds) a per-student storage folder.
type FolderCreator interface {
	CreateFolder(ctx context.Context, name string) (string, error)
}

type Service struct {
	Repo    Repo
	Folders FolderCreator
}

func NewService(repo Repo, folders FolderCreator) *Service {
	return &Service{Repo: repo, Folders: folders}
}

// Register records a student and makes sure their storage folder exists.
// Registering an already-registered student with a folder is a no-op.
func (s *Service) Register(ctx context.Context, studentID, name string) (Student, error) {
	if s == nil || s.Repo == nil {
		return Student{}, errors.New("students service not configured")
	}
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return Student{}, errors.New("student id is required")
	}

	existing, err := s.Repo.GetByID(ctx, studentID)
	switch {
	case err == nil && existing.FolderID != "":
		return existing, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return Student{}, err
	}

	student := Student{ID: studentID, Name: strings.TrimSpace(name)}
	if student.Name == "" {
		student.Name = existing.Name
	}
	if s.Folders != nil {
		folderID, err := s.Folders.CreateFolder(ctx, studentID)
		if err != nil {
			return Student{}, fmt.Errorf("create folder for %s: %w", studentID, err)
		}
		student.FolderID = folderID
	}
	if err := s.Repo.Upsert(ctx, student); err != nil {
		return Student{}, err
	}
	telemetry.Info("student.registered", map[string]any{
		"student_id": studentID,
		"folder_id":  student.FolderID,
	})
	return s.Repo.GetByID(ctx, studentID)
}

func (s *Service) GetByID(ctx context.Context, studentID string) (Student, error) {
	if s == nil || s.Repo == nil {
		return Student{}, errors.New("students service not configured")
	}
	if strings.TrimSpace(studentID) == "" {
		return Student{}, errors.New("student id is required")
	}
	return s.Repo.GetByID(ctx, strings.TrimSpace(studentID))
}

// FolderID resolves the storage folder of a registered student.
func (s *Service) FolderID(ctx context.Context, studentID string) (string, error) {
	student, err := s.GetByID(ctx, studentID)
	if err != nil {
		return "", err
	}
	if student.FolderID == "" {
		return "", ErrNoFolder
	}
	return student.FolderID, nil
}
