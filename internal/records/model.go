package records

import (
	"errors"
	"strings"
)

const (
	// ColumnStudentID and ColumnCompany are the key columns of the sheet.
	ColumnStudentID = "Register No"
	ColumnCompany   = "Company Name"

	Yes = "Yes"
	No  = "No"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrInvalidRecord = errors.New("invalid record")
)

// Record is one internship row, keyed by student and company. Fields holds
// every other column, including one Yes/No/empty column per document type.
type Record struct {
	StudentID   string            `json:"studentId"`
	CompanyName string            `json:"companyName"`
	Fields      map[string]string `json:"fields"`
}

// Get returns the value of column, including the key columns.
func (r Record) Get(column string) string {
	switch column {
	case ColumnStudentID:
		return r.StudentID
	case ColumnCompany:
		return r.CompanyName
	}
	return r.Fields[column]
}

// Matches reports whether r has the given key.
func (r Record) Matches(studentID, companyName string) bool {
	return strings.TrimSpace(r.StudentID) == strings.TrimSpace(studentID) &&
		strings.TrimSpace(r.CompanyName) == strings.TrimSpace(companyName)
}

func (r Record) clone() Record {
	out := Record{StudentID: r.StudentID, CompanyName: r.CompanyName, Fields: make(map[string]string, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}

// validate normalises r and moves key columns out of Fields.
func validate(r Record) (Record, error) {
	r = r.clone()
	if v, ok := r.Fields[ColumnStudentID]; ok {
		if r.StudentID == "" {
			r.StudentID = v
		}
		delete(r.Fields, ColumnStudentID)
	}
	if v, ok := r.Fields[ColumnCompany]; ok {
		if r.CompanyName == "" {
			r.CompanyName = v
		}
		delete(r.Fields, ColumnCompany)
	}
	r.StudentID = strings.TrimSpace(r.StudentID)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	if r.StudentID == "" {
		return Record{}, errors.Join(ErrInvalidRecord, errors.New("student id is required"))
	}
	for k := range r.Fields {
		if strings.TrimSpace(k) == "" {
			return Record{}, errors.Join(ErrInvalidRecord, errors.New("empty column name"))
		}
	}
	return r, nil
}

// mutableFields drops key columns from an update payload.
func mutableFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if k == ColumnStudentID || k == ColumnCompany || strings.TrimSpace(k) == "" {
			continue
		}
		out[k] = v
	}
	return out
}
