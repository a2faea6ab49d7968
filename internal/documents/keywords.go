package documents

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KeywordEntry maps one document type to its classification keywords.
type KeywordEntry struct {
	Type     DocumentType `yaml:"type"`
	Keywords []string     `yaml:"keywords"`
}

// KeywordTable is an ordered, immutable set of entries. Lookups return copies.
type KeywordTable struct {
	entries []KeywordEntry
}

var defaultEntries = []KeywordEntry{
	{Type: PermissionLetter, Keywords: []string{"permission letter"}},
	{Type: OfferLetter, Keywords: []string{"offer letter", "offer", "letter"}},
	{Type: CompletionCertificate, Keywords: []string{"completion", "certificate", "completion certificate", "completed"}},
	{Type: InternshipReport, Keywords: []string{"internship", "report", "internship report"}},
	{Type: StudentFeedback, Keywords: []string{"feedback", "student", "student feedback", "experience"}},
	{Type: EmployerFeedback, Keywords: []string{"feedback", "employer", "employer feedback", "performance"}},
	{Type: Resume, Keywords: []string{"resume", "curriculum vitae", "cv"}},
}

// DefaultKeywordTable returns the built-in table.
func DefaultKeywordTable() KeywordTable {
	t, err := NewKeywordTable(defaultEntries)
	if err != nil {
		panic(err)
	}
	return t
}

// NewKeywordTable validates entries and lowercases their keywords. Every
// entry needs a type and at least one non-blank keyword; types are unique.
func NewKeywordTable(entries []KeywordEntry) (KeywordTable, error) {
	seen := make(map[DocumentType]bool, len(entries))
	out := make([]KeywordEntry, 0, len(entries))
	for i, e := range entries {
		typ := normalizeType(string(e.Type))
		if typ == "" {
			return KeywordTable{}, fmt.Errorf("keyword entry %d: type is required", i)
		}
		if seen[typ] {
			return KeywordTable{}, fmt.Errorf("keyword entry %d: duplicate type %q", i, typ)
		}
		seen[typ] = true

		kws := make([]string, 0, len(e.Keywords))
		for _, k := range e.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		if len(kws) == 0 {
			return KeywordTable{}, fmt.Errorf("keyword entry %q: at least one keyword is required", typ)
		}
		out = append(out, KeywordEntry{Type: typ, Keywords: kws})
	}
	return KeywordTable{entries: out}, nil
}

// Entries returns a copy of the table in order.
func (t KeywordTable) Entries() []KeywordEntry {
	out := make([]KeywordEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = KeywordEntry{Type: e.Type, Keywords: append([]string(nil), e.Keywords...)}
	}
	return out
}

// Keywords returns the keywords configured for typ, or nil.
func (t KeywordTable) Keywords(typ DocumentType) []string {
	typ = normalizeType(string(typ))
	for _, e := range t.entries {
		if e.Type == typ {
			return append([]string(nil), e.Keywords...)
		}
	}
	return nil
}

func (t KeywordTable) Has(typ DocumentType) bool {
	return t.Keywords(typ) != nil
}

type keywordFile struct {
	Documents []KeywordEntry `yaml:"documents"`
}

// LoadKeywordTable reads a YAML override of the form
//
//	documents:
//	  - type: Offer Letter
//	    keywords: [offer letter, offer]
//
// Entries replace the default entry of the same type; new types are appended.
// An empty path returns the default table.
func LoadKeywordTable(path string) (KeywordTable, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultKeywordTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeywordTable{}, fmt.Errorf("read keywords file: %w", err)
	}
	var file keywordFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return KeywordTable{}, fmt.Errorf("parse keywords file: %w", err)
	}
	if len(file.Documents) == 0 {
		return KeywordTable{}, errors.New("keywords file has no documents")
	}

	merged := append([]KeywordEntry(nil), defaultEntries...)
	for _, e := range file.Documents {
		typ := normalizeType(string(e.Type))
		replaced := false
		for i := range merged {
			if merged[i].Type == typ {
				merged[i] = KeywordEntry{Type: typ, Keywords: e.Keywords}
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, KeywordEntry{Type: typ, Keywords: e.Keywords})
		}
	}
	return NewKeywordTable(merged)
}
