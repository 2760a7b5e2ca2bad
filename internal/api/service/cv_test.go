package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jobassist/jobassist/internal/api/domain"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	text string
	err  error
}

func (e *fakeExtractor) PDFText([]byte) (string, error) { return e.text, e.err }

func (e *fakeExtractor) ImageText(context.Context, []byte, string) (string, error) {
	return e.text, e.err
}

type fakeEnricher struct {
	result domain.CVParseResult
	err    error
	calls  int
}

func (e *fakeEnricher) Enrich(context.Context, string) (domain.CVParseResult, error) {
	e.calls++
	return e.result, e.err
}

func newCVService(f *fixture) (*CVService, *fakeExtractor, *fakeEnricher) {
	ex := &fakeExtractor{text: "Alice Martin\nGo developer"}
	en := &fakeEnricher{result: domain.CVParseResult{
		IsCV: true,
		Data: domain.CVDocument{
			FullName: "Alice Martin",
			Email:    "someone-else@example.com",
			Skills:   []string{"Go", " SQL ", ""},
			Experiences: []domain.Experience{
				{Title: "Backend Engineer", Company: "Tech Corp"},
			},
		},
	}}
	return &CVService{Store: f.store, Extractor: ex, Enricher: en, MaxUploadBytes: 1024}, ex, en
}

func TestCVUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedActiveUser(t, "alice@example.com", "correct horse")
	svc, ex, en := newCVService(f)

	t.Run("stores an enriched version", func(t *testing.T) {
		res, err := svc.Upload(ctx, alice, "cv.PDF", strings.NewReader("%PDF-1.4 ..."))
		require.NoError(t, err)
		require.True(t, res.IsCV)
		require.NotNil(t, res.CV)
		require.Equal(t, 1, res.CV.Version)
		require.Equal(t, domain.CVSourceAI, res.CV.Source)
		require.Equal(t, "alice@example.com", res.CV.Data.Email, "account email overrides the document")
		require.Equal(t, []string{"Go", "SQL"}, res.CV.Data.Skills)
	})

	t.Run("images go through the same pipeline", func(t *testing.T) {
		res, err := svc.Upload(ctx, alice, "scan.jpeg", strings.NewReader("\xff\xd8\xff"))
		require.NoError(t, err)
		require.Equal(t, 2, res.CV.Version)
	})

	t.Run("rejects unsupported extensions", func(t *testing.T) {
		_, err := svc.Upload(ctx, alice, "cv.docx", strings.NewReader("data"))
		require.ErrorIs(t, err, ErrUnsupportedFile)
		_, err = svc.Upload(ctx, alice, "", strings.NewReader("data"))
		require.ErrorIs(t, err, ErrUnsupportedFile)
	})

	t.Run("enforces the size cap", func(t *testing.T) {
		_, err := svc.Upload(ctx, alice, "cv.pdf", bytes.NewReader(make([]byte, 1025)))
		require.ErrorIs(t, err, ErrFileTooLarge)

		_, err = svc.Upload(ctx, alice, "cv.pdf", bytes.NewReader(make([]byte, 1024)))
		require.NoError(t, err)
	})

	t.Run("empty file or text", func(t *testing.T) {
		_, err := svc.Upload(ctx, alice, "cv.pdf", strings.NewReader(""))
		require.ErrorIs(t, err, ErrEmptyCV)

		ex.text = "   "
		defer func() { ex.text = "Alice Martin" }()
		_, err = svc.Upload(ctx, alice, "cv.pdf", strings.NewReader("data"))
		require.ErrorIs(t, err, ErrEmptyCV)
	})

	t.Run("not a cv is reported but not stored", func(t *testing.T) {
		before, err := svc.List(ctx, alice.ID)
		require.NoError(t, err)

		saved := en.result
		en.result = domain.CVParseResult{IsCV: false, Reason: "Document is not a CV"}
		defer func() { en.result = saved }()

		res, err := svc.Upload(ctx, alice, "invoice.pdf", strings.NewReader("data"))
		require.NoError(t, err)
		require.False(t, res.IsCV)
		require.Nil(t, res.CV)
		require.Equal(t, "Document is not a CV", res.Reason)

		after, err := svc.List(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, after, len(before))
	})

	t.Run("collaborator failures", func(t *testing.T) {
		ex.err = errors.New("corrupt pdf")
		_, err := svc.Upload(ctx, alice, "cv.pdf", strings.NewReader("data"))
		require.ErrorIs(t, err, ErrInvalidCV)

		_, err = svc.Upload(ctx, alice, "cv.png", strings.NewReader("data"))
		require.ErrorIs(t, err, ErrEnrichmentUnavailable)
		ex.err = nil

		en.err = errors.New("llm down")
		_, err = svc.Upload(ctx, alice, "cv.pdf", strings.NewReader("data"))
		require.ErrorIs(t, err, ErrEnrichmentUnavailable)
		en.err = nil
	})

	t.Run("no enricher configured", func(t *testing.T) {
		bare := &CVService{Store: f.store}
		_, err := bare.Upload(ctx, alice, "cv.pdf", strings.NewReader("data"))
		require.ErrorIs(t, err, ErrEnrichmentUnavailable)
	})
}

func TestCVManualAndLatest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedActiveUser(t, "alice@example.com", "correct horse")
	svc, _, _ := newCVService(f)

	_, err := svc.Latest(ctx, alice.ID)
	require.ErrorIs(t, err, ErrNoCV)

	list, err := svc.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Empty(t, list)
	require.NotNil(t, list)

	_, err = svc.CreateManual(ctx, alice.ID, domain.CVDocument{Location: "Paris"})
	require.ErrorIs(t, err, ErrEmptyCV, "a location alone is empty")

	_, err = svc.CreateManual(ctx, alice.ID, domain.CVDocument{FullName: "Alice", Email: "not-an-email"})
	require.ErrorIs(t, err, ErrInvalidCV)

	for i := 1; i <= 3; i++ {
		cv, err := svc.CreateManual(ctx, alice.ID, domain.CVDocument{FullName: "Alice", Summary: strings.Repeat("x", i)})
		require.NoError(t, err)
		require.Equal(t, i, cv.Version)
		require.Equal(t, domain.CVSourceManual, cv.Source)
	}

	latest, err := svc.Latest(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, 3, latest.Version)
	require.Equal(t, "xxx", latest.Data.Summary)
	require.NotNil(t, latest.Data.Skills, "stored documents always carry arrays")

	list, err = svc.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, []int{3, 2, 1}, []int{list[0].Version, list[1].Version, list[2].Version})
}
