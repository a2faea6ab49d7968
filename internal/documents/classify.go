package documents

import (
	"mime"
	"path/filepath"
	"strings"
)

// Result is the outcome of verifying one document.
type Result struct {
	DocTypeVerified bool         `json:"docTypeVerified"`
	CompanyVerified bool         `json:"companyVerified"`
	Verified        bool         `json:"verified"`
	MatchedKeywords []string     `json:"matchedKeywords,omitempty"`
	ClassifiedAs    DocumentType `json:"classifiedAs,omitempty"`
	RenamedTo       string       `json:"renamedTo,omitempty"`
}

// MatchDocType reports whether text contains any keyword, ignoring case.
// Keywords that contain the company name are skipped first, since callers
// often append the company to the keyword list. Blank keywords never match.
func MatchDocType(text string, keywords []string, company string) (bool, []string) {
	lowerText := strings.ToLower(text)
	lowerCompany := strings.ToLower(strings.TrimSpace(company))

	var matched []string
	for _, k := range keywords {
		kw := strings.ToLower(strings.TrimSpace(k))
		if kw == "" {
			continue
		}
		if lowerCompany != "" && strings.Contains(kw, lowerCompany) {
			continue
		}
		if strings.Contains(lowerText, kw) {
			matched = append(matched, k)
		}
	}
	return len(matched) > 0, matched
}

// MatchCompany reports whether text contains company, ignoring case. An empty
// company always matches.
func MatchCompany(text, company string) bool {
	company = strings.TrimSpace(company)
	if company == "" {
		return true
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(company))
}

// Evaluate verifies text against keywords and company. It is pure.
func Evaluate(text string, keywords []string, company string) Result {
	docOK, matched := MatchDocType(text, keywords, company)
	companyOK := MatchCompany(text, company)
	return Result{
		DocTypeVerified: docOK,
		CompanyVerified: companyOK,
		Verified:        docOK && companyOK,
		MatchedKeywords: matched,
	}
}

// Classify returns the first table entry with a keyword in text.
func Classify(text string, table KeywordTable) DocumentType {
	lowerText := strings.ToLower(text)
	for _, e := range table.entries {
		for _, k := range e.Keywords {
			if strings.Contains(lowerText, k) {
				return e.Type
			}
		}
	}
	return UnknownDocument
}

// CorrectiveName picks the name a failed document is renamed to. It returns
// false when r is verified and nothing should be renamed.
func CorrectiveName(r Result, studentID string, docType DocumentType, ext string) (string, bool) {
	switch {
	case r.Verified:
		return "", false
	case r.DocTypeVerified:
		return last4(studentID) + "-" + string(docType) + ext, true
	default:
		return string(UnknownDocument) + ext, true
	}
}

// UploadName is the canonical blob name for a fresh upload.
func UploadName(studentID, companyName string, docType DocumentType, ext string) string {
	return last4(studentID) + "-" + companyName + "-" + string(docType) + ext
}

func last4(s string) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= 4 {
		return string(r)
	}
	return string(r[len(r)-4:])
}

// extOf returns the extension of the first name that has one. A dotted
// suffix holding spaces or hyphens ("Amazon.com-Offer Letter") is part of the
// name, not an extension.
func extOf(names ...string) string {
	for _, n := range names {
		if ext := filepath.Ext(n); isExt(ext) {
			return ext
		}
	}
	return ""
}

func isExt(ext string) bool {
	return len(ext) > 1 && !strings.ContainsAny(ext, " -")
}

// extForMime maps a content type to a file extension, or defaultExt.
func extForMime(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return defaultExt
	}
	switch mt {
	case "application/pdf":
		return ".pdf"
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx"
	case "text/plain":
		return ".txt"
	case "application/octet-stream":
		return defaultExt
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return defaultExt
}
