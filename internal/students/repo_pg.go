package students

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, student Student) error {
	const query = `
INSERT INTO students (id, name, folder_id, created_at, updated_at)
VALUES ($1, $2, $3, now(), now())
ON CONFLICT (id) DO UPDATE SET
  name = COALESCE(EXCLUDED.name, students.name),
  folder_id = COALESCE(EXCLUDED.folder_id, students.folder_id),
  updated_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		student.ID,
		nullableString(student.Name),
		nullableString(student.FolderID),
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, studentID string) (Student, error) {
	const query = `
SELECT id, name, folder_id, created_at, updated_at
FROM students
WHERE id = $1
LIMIT 1`
	var student Student
	var name sql.NullString
	var folderID sql.NullString
	var updatedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, studentID).Scan(
		&student.ID,
		&name,
		&folderID,
		&student.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	if name.Valid {
		student.Name = name.String
	}
	if folderID.Valid {
		student.FolderID = folderID.String
	}
	if updatedAt.Valid {
		student.UpdatedAt = updatedAt.Time
	} else {
		student.UpdatedAt = time.Now().UTC()
	}
	return student, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

var _ Repo = (*PGRepo)(nil)
