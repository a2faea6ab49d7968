package documents

import "strings"

// DocumentType names a required internship document. The name doubles as the
// record column holding its Yes/No flag.
type DocumentType string

const (
	OfferLetter           DocumentType = "Offer Letter"
	CompletionCertificate DocumentType = "Completion Certificate"
	InternshipReport      DocumentType = "Internship Report"
	StudentFeedback       DocumentType = "Student Feedback"
	EmployerFeedback      DocumentType = "Employer Feedback"
	PermissionLetter      DocumentType = "Permission Letter"
	Resume                DocumentType = "Resume"

	// UnknownDocument is what Classify returns when nothing matches, and the
	// base name given to blobs that fail type verification.
	UnknownDocument DocumentType = "Unknown Document"
)

// CoreTypes are the document types tracked as record columns.
var CoreTypes = []DocumentType{
	OfferLetter,
	CompletionCertificate,
	InternshipReport,
	StudentFeedback,
	EmployerFeedback,
}

func (t DocumentType) String() string { return string(t) }

// Columns returns the record columns owned by verification.
func Columns() []string {
	out := make([]string, 0, len(CoreTypes))
	for _, t := range CoreTypes {
		out = append(out, string(t))
	}
	return out
}

func normalizeType(raw string) DocumentType {
	return DocumentType(strings.TrimSpace(raw))
}
