package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/recruitflow/internal/apperr"
	"github.com/starford/recruitflow/internal/models"
	"github.com/starford/recruitflow/internal/storage"
	"github.com/starford/recruitflow/internal/workflow"
)

// Subdirectories of the intake directory that receive handled profiles.
const (
	ProcessedDir = "processed"
	RejectedDir  = "rejected"
)

// DefaultSource labels candidates admitted from profiles without a source.
const DefaultSource = "intake"

// Actor attributes admissions made from profile files.
var Actor = workflow.Actor{ID: "intake", Name: "intake"}

// Admitter is the part of the workflow engine intake needs.
type Admitter interface {
	AdmitCandidate(ctx context.Context, in workflow.CandidateInput) (*models.Candidate, error)
	AttachCV(ctx context.Context, candidateID, filename string, content []byte) (*models.Candidate, error)
}

// Result is the outcome of handling one profile.
type Result string

const (
	ResultAdmitted  Result = "admitted"
	ResultDuplicate Result = "duplicate"
	ResultInvalid   Result = "invalid"
	ResultFailed    Result = "failed"
)

// Report counts the outcomes of a sync pass.
type Report struct {
	Admitted   int `json:"admitted"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
	Failed     int `json:"failed"`
}

func (r *Report) add(res Result) {
	switch res {
	case ResultAdmitted:
		r.Admitted++
	case ResultDuplicate:
		r.Duplicates++
	case ResultInvalid:
		r.Invalid++
	case ResultFailed:
		r.Failed++
	}
}

// Importer admits profiles found in one directory of a document store.
type Importer struct {
	admitter Admitter
	docs     storage.Provider
	dir      string
	logger   *slog.Logger
}

// NewImporter creates an importer for dir, relative to the docs root.
func NewImporter(admitter Admitter, docs storage.Provider, dir string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{admitter: admitter, docs: docs, dir: path.Clean(dir), logger: logger}
}

// Dir is the watched directory relative to the docs root.
func (im *Importer) Dir() string { return im.dir }

// Sync handles every pending profile in the intake directory. Files that
// fail for infrastructure reasons stay in place for the next pass.
func (im *Importer) Sync(ctx context.Context) (Report, error) {
	var rep Report
	docs, err := im.docs.List(im.dir, ".md")
	if err != nil {
		return rep, err
	}
	for _, d := range docs {
		if !im.pending(d.Path) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.add(im.Process(ctx, d.Path))
	}
	im.logger.Info("intake: sync finished",
		slog.String("dir", im.dir),
		slog.Int("admitted", rep.Admitted),
		slog.Int("duplicates", rep.Duplicates),
		slog.Int("invalid", rep.Invalid),
		slog.Int("failed", rep.Failed))
	return rep, nil
}

// pending reports whether p sits directly in the intake directory.
func (im *Importer) pending(p string) bool {
	return path.Dir(p) == im.dir
}

// Process admits a single profile and files it under processed/ or
// rejected/.
func (im *Importer) Process(ctx context.Context, rel string) Result {
	log := im.logger.With(slog.String("path", rel))
	if workflow.ActorFrom(ctx) == workflow.SystemActor {
		ctx = workflow.WithActor(ctx, Actor)
	}

	data, err := im.docs.Read(rel)
	if err != nil {
		log.Warn("intake: read failed", slog.String("error", err.Error()))
		return ResultFailed
	}
	profile, err := ParseProfile(data)
	if err != nil {
		im.reject(log, rel, err.Error())
		return ResultInvalid
	}

	c, err := im.admitter.AdmitCandidate(ctx, profile.Input(DefaultSource))
	var dup *apperr.DuplicateCandidateError
	switch {
	case errors.As(err, &dup):
		im.reject(log, rel, fmt.Sprintf("duplicate of %s (%s, %s)", dup.ExistingName, dup.ExistingID, dup.ExistingStatus))
		return ResultDuplicate
	case errors.Is(err, apperr.ErrValidation):
		im.reject(log, rel, err.Error())
		return ResultInvalid
	case err != nil:
		log.Error("intake: admit failed", slog.String("error", err.Error()))
		return ResultFailed
	}

	if profile.CV != "" {
		im.attachCV(ctx, log, c.ID, profile.CV)
	}
	if err := im.file(rel, ProcessedDir); err != nil {
		log.Warn("intake: move to processed failed", slog.String("error", err.Error()))
	}
	log.Info("intake: candidate admitted", slog.String("candidate_id", c.ID))
	return ResultAdmitted
}

func (im *Importer) attachCV(ctx context.Context, log *slog.Logger, candidateID, name string) {
	rel := path.Join(im.dir, path.Base(name))
	content, err := im.docs.Read(rel)
	if err != nil {
		log.Warn("intake: cv not readable", slog.String("cv", rel), slog.String("error", err.Error()))
		return
	}
	if _, err := im.admitter.AttachCV(ctx, candidateID, path.Base(name), content); err != nil {
		log.Warn("intake: attach cv failed", slog.String("cv", rel), slog.String("error", err.Error()))
		return
	}
	if err := im.file(rel, ProcessedDir); err != nil {
		log.Warn("intake: move cv failed", slog.String("cv", rel), slog.String("error", err.Error()))
	}
}

// reject moves rel to rejected/ and writes the reason next to it.
func (im *Importer) reject(log *slog.Logger, rel, reason string) {
	log.Warn("intake: profile rejected", slog.String("reason", reason))
	dest := im.destination(rel, RejectedDir)
	if err := im.docs.Move(rel, dest); err != nil {
		log.Warn("intake: move to rejected failed", slog.String("error", err.Error()))
		return
	}
	if err := im.docs.Write(dest+".reason.txt", []byte(reason+"\n")); err != nil {
		log.Warn("intake: write reason failed", slog.String("error", err.Error()))
	}
}

func (im *Importer) file(rel, sub string) error {
	return im.docs.Move(rel, im.destination(rel, sub))
}

// destination picks a free name for rel under sub, suffixing a timestamp
// when the plain name is taken.
func (im *Importer) destination(rel, sub string) string {
	base := path.Base(rel)
	dest := path.Join(im.dir, sub, base)
	if _, err := im.docs.Stat(dest); err != nil {
		return dest
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return path.Join(im.dir, sub, fmt.Sprintf("%s-%d%s", stem, time.Now().UnixNano(), ext))
}
