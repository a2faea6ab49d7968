package documents

import (
	"errors"

	"interntrack-backend/internal/records"
)

var (
	ErrMissingStudentID = errors.New("student id is required")
	ErrUnknownStudent   = errors.New("unknown student")
	ErrNoStorageFolder  = errors.New("no storage folder for student")
	ErrUploadFailed     = errors.New("upload failed")
	ErrDownloadFailed   = errors.New("download failed")
	ErrExtractionFailed = errors.New("text extraction failed")
	ErrRenameFailed     = errors.New("rename failed")
	ErrForeignFile      = errors.New("file does not belong to student")
	ErrInvalidInput     = errors.New("invalid input")

	ErrRecordNotFound = records.ErrNotFound
)
