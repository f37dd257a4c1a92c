package usecase_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/observability"
	"github.com/fairyhunter13/skills-warrior/internal/usecase"
)

func TestExtract_FromUpload(t *testing.T) {
	t.Parallel()
	x := &fakeExtractor{text: "  Go\x00 engineer\n"}
	svc := usecase.NewExtractService(x)

	got, err := svc.FromUpload(context.Background(), "/tmp/uploads/cv.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "cv.pdf", got.Filename)
	assert.Equal(t, "Go engineer", got.Text)
	assert.Equal(t, 11, got.Chars)
	assert.Equal(t, "cv.pdf", x.got)
}

func TestExtract_FromUpload_LogsShortPreview(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	lg := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := observability.ContextWithLogger(context.Background(), lg)
	long := "Kubernetes\n\n" + strings.Repeat("golang ", 40)
	svc := usecase.NewExtractService(&fakeExtractor{text: long})

	got, err := svc.FromUpload(ctx, "cv.txt", []byte("x"))
	require.NoError(t, err)
	assert.Contains(t, got.Text, "Kubernetes")

	logged := buf.String()
	assert.Contains(t, logged, "document extracted")
	assert.Contains(t, logged, "filename=cv.txt")
	assert.Contains(t, logged, `preview="Kubernetes golang`)
	assert.NotContains(t, logged, strings.TrimSpace(strings.Repeat("golang ", 40)))
}

func TestExtract_FromUpload_Errors(t *testing.T) {
	t.Parallel()
	svc := usecase.NewExtractService(&fakeExtractor{text: "x"})
	_, err := svc.FromUpload(context.Background(), "", []byte("x"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.FromUpload(context.Background(), "cv.txt", nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	svc = usecase.NewExtractService(&fakeExtractor{text: " \n\t"})
	_, err = svc.FromUpload(context.Background(), "cv.txt", []byte("x"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	boom := errors.New("parser exploded")
	svc = usecase.NewExtractService(&fakeExtractor{err: boom})
	_, err = svc.FromUpload(context.Background(), "cv.pdf", []byte("x"))
	require.ErrorIs(t, err, boom)
}

func TestExtract_FromDataURI(t *testing.T) {
	t.Parallel()
	svc := usecase.NewExtractService(&fakeExtractor{text: "python"})
	uri := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	got, err := svc.FromDataURI(context.Background(), "cv.pdf", uri)
	require.NoError(t, err)
	assert.Equal(t, "python", got.Text)

	_, err = svc.FromDataURI(context.Background(), "cv.pdf", "not-a-data-uri")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}
