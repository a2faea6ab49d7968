package documents

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"interntrack-backend/internal/shared/storage/blob"
)

// Stage names the pipeline step an outcome stopped at.
type Stage string

const (
	StageUpload    Stage = "upload"
	StageVerify    Stage = "verify"
	StageReconcile Stage = "reconcile"
	StageDone      Stage = "done"
)

// SubmitOutcome is the tagged result of a pipeline run. Err is set when
// Stage is not StageDone.
type SubmitOutcome struct {
	Blob   blob.Blob
	Result Result
	Stage  Stage
	Err    error
}

// Pipeline chains upload, verification and reconciliation.
type Pipeline struct {
	Uploader   *Uploader
	Verifier   *Verifier
	Reconciler *Reconciler
}

func NewPipeline(u *Uploader, v *Verifier, r *Reconciler) *Pipeline {
	return &Pipeline{Uploader: u, Verifier: v, Reconciler: r}
}

// Submit uploads one file, then verifies and reconciles it.
func (p *Pipeline) Submit(ctx context.Context, in UploadInput, keywords []string) SubmitOutcome {
	b, err := p.Uploader.Upload(ctx, in)
	if err != nil {
		return SubmitOutcome{Stage: StageUpload, Err: err}
	}
	out := p.VerifyAndReconcile(ctx, VerifyInput{
		FileID:      b.ID,
		DocType:     in.DocType,
		StudentID:   in.StudentID,
		Keywords:    keywords,
		CompanyName: in.CompanyName,
		FolderID:    b.FolderID,
	})
	out.Blob = b
	return out
}

// SubmitBatch runs Submit for each input with bounded concurrency.
func (p *Pipeline) SubmitBatch(ctx context.Context, inputs []UploadInput, keywords []string) []SubmitOutcome {
	out := make([]SubmitOutcome, len(inputs))
	limit := p.Uploader.BatchLimit
	if limit <= 0 {
		limit = defaultBatchLimit
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i, in := range inputs {
		g.Go(func() error {
			out[i] = p.Submit(ctx, in, keywords)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// VerifyAndReconcile verifies a stored document and records the outcome.
// Nothing is written when verification itself fails.
func (p *Pipeline) VerifyAndReconcile(ctx context.Context, in VerifyInput) SubmitOutcome {
	in.StudentID = strings.TrimSpace(in.StudentID)
	if in.StudentID == "" {
		return SubmitOutcome{Stage: StageVerify, Err: ErrMissingStudentID}
	}
	if in.FolderID == "" {
		folderID, err := p.Uploader.folder(ctx, in.StudentID)
		if err != nil {
			return SubmitOutcome{Stage: StageVerify, Err: err}
		}
		in.FolderID = folderID
	}

	res, err := p.Verifier.Verify(ctx, in)
	if err != nil {
		return SubmitOutcome{Stage: StageVerify, Err: err}
	}
	if err := p.Reconciler.Reconcile(ctx, in.StudentID, in.CompanyName, in.DocType, res.Verified); err != nil {
		return SubmitOutcome{Result: res, Stage: StageReconcile, Err: err}
	}
	return SubmitOutcome{Result: res, Stage: StageDone}
}
