package tika_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/skills-warrior/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

func TestClient_Extract(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		handler  http.HandlerFunc
		want     string
		wantErr  error
	}{
		{
			name:     "successful text extraction",
			fileName: "resume.txt",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPut, r.Method)
				assert.Equal(t, "/tika", r.URL.Path)
				assert.Equal(t, "text/plain", r.Header.Get("Accept"))
				body, _ := io.ReadAll(r.Body)
				assert.Equal(t, "raw bytes", string(body))
				_, _ = w.Write([]byte("  Extracted\n\ntext\tcontent \x00"))
			},
			want: "Extracted text content",
		},
		{
			name:     "legacy word document content type",
			fileName: "cv.DOC",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/msword", r.Header.Get("Content-Type"))
				_, _ = w.Write([]byte("doc text"))
			},
			want: "doc text",
		},
		{
			name:     "odt content type",
			fileName: "cv.odt",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/vnd.oasis.opendocument.text", r.Header.Get("Content-Type"))
				_, _ = w.Write([]byte("odt text"))
			},
			want: "odt text",
		},
		{
			name:     "unsupported media",
			fileName: "cv.bin",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnsupportedMediaType)
			},
			wantErr: domain.ErrUnsupportedMedia,
		},
		{
			name:     "server error",
			fileName: "cv.rtf",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantErr: domain.ErrUpstreamUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			got, err := tika.New(srv.URL+"/").Extract(context.Background(), tt.fileName, []byte("raw bytes"))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "op=tika.Extract")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Extract_EmptyInput(t *testing.T) {
	_, err := tika.New("http://127.0.0.1:1").Extract(context.Background(), "a.doc", nil)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestClient_Extract_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := tika.New(url)
	_, err := c.Extract(context.Background(), "a.doc", []byte("x"))
	require.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/tika" {
			_, _ = w.Write([]byte("This is Tika Server"))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := tika.New(srv.URL)
	require.NoError(t, c.Ping(context.Background()))
	assert.True(t, c.Healthy())

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()
	down := tika.New(bad.URL)
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, down.Ping(context.Background()), domain.ErrUpstreamUnavailable)
	}
	assert.False(t, down.Healthy(), "failed pings mark the client unhealthy")
}
