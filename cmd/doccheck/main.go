package main

// Check a document locally without touching storage or records:
//   go run ./cmd/doccheck classify offer.pdf
//   go run ./cmd/doccheck verify offer.pdf --type "Offer Letter" --company Acme

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"interntrack-backend/internal/documents"
	"interntrack-backend/internal/extract"
)

type options struct {
	keywordsFile   string
	extractCommand string
	ocrCommand     string
	useCommands    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "doccheck",
		Short:        "Classify and verify internship documents offline",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.keywordsFile, "keywords-file", os.Getenv("KEYWORDS_FILE"), "YAML keyword table override")
	root.PersistentFlags().BoolVar(&opts.useCommands, "chain", false, "fall back to external extract/OCR commands")
	root.PersistentFlags().StringVar(&opts.extractCommand, "extract-command", "pdftotext -layout -enc UTF-8 {path} -", "external extractor template")
	root.PersistentFlags().StringVar(&opts.ocrCommand, "ocr-command", "tesseract {path} stdout", "OCR command template")

	root.AddCommand(newClassifyCmd(opts), newVerifyCmd(opts))
	return root
}

func newClassifyCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "classify FILE",
		Short: "Print the document type whose keywords appear first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, text, err := load(cmd, opts, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, map[string]any{
				"file":         filepath.Base(args[0]),
				"classifiedAs": documents.Classify(text, table),
			})
		},
	}
}

func newVerifyCmd(opts *options) *cobra.Command {
	var (
		docType  string
		company  string
		keywords []string
		student  string
	)
	cmd := &cobra.Command{
		Use:   "verify FILE",
		Short: "Check a document against a type and company",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, text, err := load(cmd, opts, args[0])
			if err != nil {
				return err
			}
			dt := documents.DocumentType(strings.TrimSpace(docType))
			if len(keywords) == 0 {
				if !table.Has(dt) {
					return fmt.Errorf("unknown document type %q", docType)
				}
				keywords = table.Keywords(dt)
			}

			result := documents.Evaluate(text, keywords, company)
			result.ClassifiedAs = documents.Classify(text, table)
			out := map[string]any{
				"file":   filepath.Base(args[0]),
				"result": result,
			}
			if name, ok := documents.CorrectiveName(result, student, dt, filepath.Ext(args[0])); ok {
				out["wouldRenameTo"] = name
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().StringVar(&docType, "type", "", "expected document type")
	cmd.Flags().StringVar(&company, "company", "", "expected company name")
	cmd.Flags().StringArrayVar(&keywords, "keyword", nil, "keyword override (repeatable)")
	cmd.Flags().StringVar(&student, "student", "", "student id used for the corrective name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func load(cmd *cobra.Command, opts *options, path string) (documents.KeywordTable, string, error) {
	table, err := documents.LoadKeywordTable(opts.keywordsFile)
	if err != nil {
		return documents.KeywordTable{}, "", err
	}
	extractor, err := opts.extractor()
	if err != nil {
		return documents.KeywordTable{}, "", err
	}
	text, err := extractor.ExtractText(cmd.Context(), path)
	if err != nil {
		return documents.KeywordTable{}, "", fmt.Errorf("extract %s: %w", path, err)
	}
	return table, text, nil
}

func (o *options) extractor() (extract.Extractor, error) {
	if !o.useCommands {
		return extract.NewNative(), nil
	}
	steps := []extract.Extractor{extract.NewNative()}
	for _, tmpl := range []string{o.extractCommand, o.ocrCommand} {
		if strings.TrimSpace(tmpl) == "" {
			continue
		}
		c, err := extract.NewCommand(tmpl, nil)
		if err != nil {
			return nil, err
		}
		steps = append(steps, c)
	}
	return extract.NewFallback(steps...), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
