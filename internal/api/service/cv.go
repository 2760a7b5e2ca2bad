package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/jobassist/jobassist/internal/api/store"
	"github.com/jobassist/jobassist/pkg/idx"
	"github.com/jobassist/jobassist/pkg/slogx"
)

const (
	DefaultMaxUploadBytes int64 = 5 << 20

	versionConflictRetries = 3
)

var (
	ErrUnsupportedFile       = errors.New("unsupported_file")
	ErrFileTooLarge          = errors.New("file_too_large")
	ErrEmptyCV               = errors.New("empty_cv")
	ErrInvalidCV             = errors.New("invalid_cv")
	ErrNoCV                  = errors.New("no_cv")
	ErrEnrichmentUnavailable = errors.New("enrichment_unavailable")
)

var uploadTypes = map[string]string{
	".pdf":  "application/pdf",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// TextExtractor turns an uploaded file into plain text. PDFs are parsed
// locally; images go through a remote vision model.
type TextExtractor interface {
	PDFText(data []byte) (string, error)
	ImageText(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Enricher structures raw CV text.
type Enricher interface {
	Enrich(ctx context.Context, rawText string) (domain.CVParseResult, error)
}

type CVService struct {
	Store     store.Store
	Extractor TextExtractor
	Enricher  Enricher
	Metrics   *Metrics

	MaxUploadBytes int64
}

// UploadResult reports what happened to an uploaded file. CV is nil when
// the document was not recognised as a CV.
type UploadResult struct {
	IsCV   bool
	Reason string
	CV     *domain.CV
}

// Upload extracts, enriches and stores an uploaded CV file for u. Documents
// the enricher rejects are reported but not stored.
func (s *CVService) Upload(ctx context.Context, u domain.User, filename string, r io.Reader) (UploadResult, error) {
	l := slogx.FromContext(ctx)

	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
	mimeType, ok := uploadTypes[ext]
	if !ok {
		return UploadResult{}, ErrUnsupportedFile
	}

	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = DefaultMaxUploadBytes
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return UploadResult{}, err
	}
	if n > limit {
		return UploadResult{}, ErrFileTooLarge
	}
	if n == 0 {
		return UploadResult{}, ErrEmptyCV
	}

	if s.Extractor == nil || s.Enricher == nil {
		return UploadResult{}, ErrEnrichmentUnavailable
	}

	var text string
	if ext == ".pdf" {
		text, err = s.Extractor.PDFText(buf.Bytes())
		if err != nil {
			return UploadResult{}, fmt.Errorf("%w: %w", ErrInvalidCV, err)
		}
	} else {
		text, err = s.Extractor.ImageText(ctx, buf.Bytes(), mimeType)
		if err != nil {
			l.Error("image text extraction failed", slog.Any("error", err))
			return UploadResult{}, fmt.Errorf("%w: %w", ErrEnrichmentUnavailable, err)
		}
	}
	if strings.TrimSpace(text) == "" {
		return UploadResult{}, ErrEmptyCV
	}

	parsed, err := s.Enricher.Enrich(ctx, text)
	if err != nil {
		l.Error("cv enrichment failed", slog.Any("error", err))
		return UploadResult{}, fmt.Errorf("%w: %w", ErrEnrichmentUnavailable, err)
	}
	if !parsed.IsCV {
		l.Info("uploaded document is not a cv", slog.String("reason", parsed.Reason))
		return UploadResult{IsCV: false, Reason: parsed.Reason}, nil
	}

	// The account email wins over whatever the document says.
	parsed.Data.Email = u.Email
	cv, err := s.save(ctx, u.ID, domain.CVSourceAI, parsed.Data)
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{IsCV: true, CV: &cv}, nil
}

// CreateManual stores a CV typed in by the user.
func (s *CVService) CreateManual(ctx context.Context, userID string, doc domain.CVDocument) (domain.CV, error) {
	return s.save(ctx, userID, domain.CVSourceManual, doc)
}

// Latest returns the highest version of the user's CV.
func (s *CVService) Latest(ctx context.Context, userID string) (domain.CV, error) {
	cv, err := s.Store.CVs().GetLatestCV(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.CV{}, ErrNoCV
	}
	return cv, err
}

// List returns every version, newest first.
func (s *CVService) List(ctx context.Context, userID string) ([]domain.CV, error) {
	cvs, err := s.Store.CVs().ListCVs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cvs == nil {
		cvs = []domain.CV{}
	}
	return cvs, nil
}

func (s *CVService) save(ctx context.Context, userID string, source domain.CVSource, doc domain.CVDocument) (domain.CV, error) {
	doc = trimDocument(doc)
	if doc.IsEmpty() {
		return domain.CV{}, ErrEmptyCV
	}
	if err := validate.Struct(doc); err != nil {
		return domain.CV{}, fmt.Errorf("%w: %w", ErrInvalidCV, err)
	}

	// Two concurrent writers may compute the same next version; the loser
	// hits the unique constraint and tries again.
	var lastErr error
	for range versionConflictRetries {
		cv, err := s.Store.CVs().CreateNextVersion(ctx, domain.CV{
			ID:        idx.New().String(),
			UserID:    userID,
			Source:    source,
			Data:      doc,
			CreatedAt: time.Now().UTC(),
		})
		if err == nil {
			s.Metrics.cvStored(string(source))
			slogx.FromContext(ctx).Info("cv stored",
				slog.String("user_id", userID),
				slog.Int("version", cv.Version),
				slog.String("source", string(source)),
			)
			return cv, nil
		}
		if !errors.Is(err, store.ErrAlreadyExists) {
			return domain.CV{}, err
		}
		lastErr = err
	}
	return domain.CV{}, lastErr
}

func trimDocument(d domain.CVDocument) domain.CVDocument {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Email = strings.TrimSpace(d.Email)
	d.Phone = strings.TrimSpace(d.Phone)
	d.Location = strings.TrimSpace(d.Location)
	d.Summary = strings.TrimSpace(d.Summary)

	var skills []string
	for _, sk := range d.Skills {
		if sk = strings.TrimSpace(sk); sk != "" {
			skills = append(skills, sk)
		}
	}
	d.Skills = skills
	return d
}
