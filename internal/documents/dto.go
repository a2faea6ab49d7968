package documents

import (
	"time"

	"interntrack-backend/internal/shared/storage/blob"
)

// FileResponse is the outward-facing representation of a stored document.
type FileResponse struct {
	FileID      string    `json:"fileId"`
	FileName    string    `json:"fileName"`
	WebViewLink string    `json:"webViewLink,omitempty"`
	MimeType    string    `json:"mimeType,omitempty"`
	SizeBytes   int64     `json:"sizeBytes,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt,omitempty"`
}

type FailedFile struct {
	FileName string `json:"fileName"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

type UploadResponse struct {
	UploadedFiles []FileResponse `json:"uploadedFiles"`
	Failed        []FailedFile   `json:"failed"`
}

type VerifyRequest struct {
	FileID      string   `json:"fileId"`
	DocType     string   `json:"docType"`
	Keywords    []string `json:"keywords"`
	StudentID   string   `json:"studentId"`
	Username    string   `json:"username"`
	CompanyName string   `json:"companyName"`
}

type VerifyResponse struct {
	Verified        bool   `json:"verified"`
	DocTypeVerified bool   `json:"docTypeVerified"`
	CompanyVerified bool   `json:"companyVerified"`
	RenamedTo       string `json:"renamedTo,omitempty"`
	ClassifiedAs    string `json:"classifiedAs,omitempty"`
	Message         string `json:"message"`
}

type SubmitResult struct {
	FileName string `json:"fileName"`
	FileID   string `json:"fileId,omitempty"`
	Stage    Stage  `json:"stage"`
	VerifyResponse
	Error *FailedFile `json:"error,omitempty"`
}

type SubmitResponse struct {
	Results []SubmitResult `json:"results"`
}

type ListResponse struct {
	Count int            `json:"count"`
	Data  []FileResponse `json:"data"`
}

func toFileResponse(b blob.Blob) FileResponse {
	return FileResponse{
		FileID:      b.ID,
		FileName:    b.Name,
		WebViewLink: b.WebViewLink,
		MimeType:    b.MimeType,
		SizeBytes:   b.SizeBytes,
		UploadedAt:  b.CreatedAt,
	}
}

func toVerifyResponse(r Result) VerifyResponse {
	msg := "Document verification failed"
	if r.Verified {
		msg = "Document verified successfully"
	}
	return VerifyResponse{
		Verified:        r.Verified,
		DocTypeVerified: r.DocTypeVerified,
		CompanyVerified: r.CompanyVerified,
		RenamedTo:       r.RenamedTo,
		ClassifiedAs:    string(r.ClassifiedAs),
		Message:         msg,
	}
}
