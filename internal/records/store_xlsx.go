package records

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"interntrack-backend/internal/shared/lock"
)

const defaultSheet = "Sheet1"

// XLSXStore keeps records in the first (or a named) sheet of a workbook.
// Row 1 is the header. Every write is read-modify-write of the whole file
// under a lock keyed by the workbook path.
type XLSXStore struct {
	path   string
	sheet  string
	locker lock.Locker
}

// NewXLSXStore returns a store for path. A nil locker gets an in-process one.
func NewXLSXStore(path, sheet string, locker lock.Locker) *XLSXStore {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &XLSXStore{path: path, sheet: strings.TrimSpace(sheet), locker: locker}
}

type workbook struct {
	file   *excelize.File
	sheet  string
	header []string
	rows   [][]string
}

func (s *XLSXStore) lockKey() string {
	if abs, err := filepath.Abs(s.path); err == nil {
		return "records:" + abs
	}
	return "records:" + s.path
}

func (s *XLSXStore) open() (*workbook, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, err
	}
	sheet := s.sheet
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			_ = f.Close()
			return nil, fmt.Errorf("workbook %s has no sheets", s.path)
		}
		sheet = list[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	wb := &workbook{file: f, sheet: sheet}
	if len(rows) > 0 {
		for _, h := range rows[0] {
			wb.header = append(wb.header, strings.TrimSpace(h))
		}
		wb.rows = rows[1:]
	}
	return wb, nil
}

func (s *XLSXStore) create() (*workbook, error) {
	f := excelize.NewFile()
	sheet := defaultSheet
	if s.sheet != "" && s.sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, s.sheet); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("name sheet: %w", err)
		}
		sheet = s.sheet
	}
	wb := &workbook{file: f, sheet: sheet}
	for _, col := range []string{ColumnStudentID, ColumnCompany} {
		if _, err := wb.column(col); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return wb, nil
}

func (s *XLSXStore) save(wb *workbook) error {
	buf, err := wb.file.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace workbook: %w", err)
	}
	return nil
}

// column returns the 1-based index of name, appending a header cell when missing.
func (wb *workbook) column(name string) (int, error) {
	for i, h := range wb.header {
		if h == name {
			return i + 1, nil
		}
	}
	wb.header = append(wb.header, name)
	idx := len(wb.header)
	if err := wb.set(idx, 1, name); err != nil {
		return 0, err
	}
	return idx, nil
}

func (wb *workbook) set(col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return wb.file.SetCellValue(wb.sheet, cell, value)
}

func (wb *workbook) record(row []string) Record {
	rec := Record{Fields: map[string]string{}}
	for i, h := range wb.header {
		if h == "" {
			continue
		}
		var v string
		if i < len(row) {
			v = strings.TrimSpace(row[i])
		}
		switch h {
		case ColumnStudentID:
			rec.StudentID = v
		case ColumnCompany:
			rec.CompanyName = v
		default:
			rec.Fields[h] = v
		}
	}
	return rec
}

func (wb *workbook) records() []Record {
	out := make([]Record, 0, len(wb.rows))
	for _, row := range wb.rows {
		if isBlank(row) {
			continue
		}
		out = append(out, wb.record(row))
	}
	return out
}

// find returns the 1-based sheet row of the key, or 0.
func (wb *workbook) find(studentID, companyName string) int {
	for i, row := range wb.rows {
		if isBlank(row) {
			continue
		}
		if wb.record(row).Matches(studentID, companyName) {
			return i + 2
		}
	}
	return 0
}

func (wb *workbook) writeFields(row int, fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		col, err := wb.column(k)
		if err != nil {
			return err
		}
		if err := wb.set(col, row, fields[k]); err != nil {
			return err
		}
	}
	return nil
}

func (wb *workbook) readRow(row int) (Record, error) {
	rows, err := wb.file.GetRows(wb.sheet)
	if err != nil {
		return Record{}, err
	}
	if row-1 >= len(rows) {
		return Record{}, ErrNotFound
	}
	return wb.record(rows[row-1]), nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func missing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// List returns every non-blank row. A missing workbook has no records.
func (s *XLSXStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wb, err := s.open()
	if err != nil {
		if missing(err) {
			return []Record{}, nil
		}
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.file.Close()
	return wb.records(), nil
}

func (s *XLSXStore) Find(ctx context.Context, studentID, companyName string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	wb, err := s.open()
	if err != nil {
		if missing(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.file.Close()
	row := wb.find(studentID, companyName)
	if row == 0 {
		return Record{}, ErrNotFound
	}
	return wb.record(wb.rows[row-2]), nil
}

// SetField writes one cell of the keyed row, adding the column if needed.
func (s *XLSXStore) SetField(ctx context.Context, studentID, companyName, field, value string) error {
	if field == ColumnStudentID || field == ColumnCompany || strings.TrimSpace(field) == "" {
		return fmt.Errorf("%w: cannot set column %q", ErrInvalidRecord, field)
	}
	unlock, err := s.locker.Lock(ctx, s.lockKey())
	if err != nil {
		return err
	}
	defer unlock()

	wb, err := s.open()
	if err != nil {
		if missing(err) {
			return ErrNotFound
		}
		return fmt.Errorf("open workbook: %w", err)
	}
	defer wb.file.Close()

	row := wb.find(studentID, companyName)
	if row == 0 {
		return ErrNotFound
	}
	if err := wb.writeFields(row, map[string]string{field: value}); err != nil {
		return fmt.Errorf("set %s: %w", field, err)
	}
	return s.save(wb)
}

// Create appends rec, creating the workbook when it does not exist yet.
func (s *XLSXStore) Create(ctx context.Context, rec Record) error {
	rec, err := validate(rec)
	if err != nil {
		return err
	}
	unlock, err := s.locker.Lock(ctx, s.lockKey())
	if err != nil {
		return err
	}
	defer unlock()

	wb, err := s.open()
	if err != nil {
		if !missing(err) {
			return fmt.Errorf("open workbook: %w", err)
		}
		if wb, err = s.create(); err != nil {
			return err
		}
	}
	defer wb.file.Close()

	if wb.find(rec.StudentID, rec.CompanyName) != 0 {
		return ErrAlreadyExists
	}

	row := len(wb.rows) + 2
	fields := make(map[string]string, len(rec.Fields)+2)
	for k, v := range rec.Fields {
		fields[k] = v
	}
	fields[ColumnStudentID] = rec.StudentID
	fields[ColumnCompany] = rec.CompanyName
	if err := wb.writeFields(row, fields); err != nil {
		return fmt.Errorf("append row: %w", err)
	}
	return s.save(wb)
}

// Update merges fields into the keyed row. Key columns are ignored.
func (s *XLSXStore) Update(ctx context.Context, studentID, companyName string, fields map[string]string) (Record, error) {
	unlock, err := s.locker.Lock(ctx, s.lockKey())
	if err != nil {
		return Record{}, err
	}
	defer unlock()

	wb, err := s.open()
	if err != nil {
		if missing(err) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.file.Close()

	row := wb.find(studentID, companyName)
	if row == 0 {
		return Record{}, ErrNotFound
	}
	if err := wb.writeFields(row, mutableFields(fields)); err != nil {
		return Record{}, fmt.Errorf("update row: %w", err)
	}
	if err := s.save(wb); err != nil {
		return Record{}, err
	}
	return wb.readRow(row)
}

var _ Store = (*XLSXStore)(nil)
