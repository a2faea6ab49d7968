package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGStore keeps records in the internship_records table. Document flags live
// in a jsonb column so a single UPDATE changes one field atomically.
type PGStore struct {
	DB *sql.DB
}

func (s *PGStore) List(ctx context.Context) ([]Record, error) {
	const query = `
SELECT student_id, company_name, fields
FROM internship_records
ORDER BY created_at, student_id, company_name`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PGStore) Find(ctx context.Context, studentID, companyName string) (Record, error) {
	const query = `
SELECT student_id, company_name, fields
FROM internship_records
WHERE student_id = $1 AND company_name = $2
LIMIT 1`
	rec, err := scanRecord(s.DB.QueryRowContext(ctx, query, studentID, companyName))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *PGStore) SetField(ctx context.Context, studentID, companyName, field, value string) error {
	const query = `
UPDATE internship_records
SET fields = jsonb_set(fields, ARRAY[$3::text], to_jsonb($4::text), true),
    updated_at = now()
WHERE student_id = $1 AND company_name = $2`
	res, err := s.DB.ExecContext(ctx, query, studentID, companyName, field, value)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) Create(ctx context.Context, rec Record) error {
	rec, err := validate(rec)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	const query = `
INSERT INTO internship_records (student_id, company_name, fields, created_at, updated_at)
VALUES ($1, $2, $3::jsonb, now(), now())
ON CONFLICT (student_id, company_name) DO NOTHING`
	res, err := s.DB.ExecContext(ctx, query, rec.StudentID, rec.CompanyName, string(payload))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *PGStore) Update(ctx context.Context, studentID, companyName string, fields map[string]string) (Record, error) {
	payload, err := json.Marshal(mutableFields(fields))
	if err != nil {
		return Record{}, fmt.Errorf("encode fields: %w", err)
	}
	const query = `
UPDATE internship_records
SET fields = fields || $3::jsonb,
    updated_at = now()
WHERE student_id = $1 AND company_name = $2
RETURNING student_id, company_name, fields`
	rec, err := scanRecord(s.DB.QueryRowContext(ctx, query, studentID, companyName, string(payload)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec    Record
		fields []byte
	)
	if err := row.Scan(&rec.StudentID, &rec.CompanyName, &fields); err != nil {
		return Record{}, err
	}
	rec.Fields = map[string]string{}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &rec.Fields); err != nil {
			return Record{}, fmt.Errorf("decode fields: %w", err)
		}
	}
	return rec, nil
}

var _ Store = (*PGStore)(nil)
