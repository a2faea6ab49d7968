package blob

import "testing"

func TestMimeTypeFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want string
	}{
		{name: "offer.pdf", want: "application/pdf"},
		{name: "REPORT.PDF", want: "application/pdf"},
		{name: "feedback.docx", want: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{name: "notes.txt", want: "text/plain"},
		{name: "noext", want: "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := MimeTypeFor(tt.name); got != tt.want {
			t.Fatalf("MimeTypeFor(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
