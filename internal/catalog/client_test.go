package catalog_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/romvault/romvault/internal/catalog"
	"github.com/romvault/romvault/internal/errors"
)

func TestFetchFileStreamsBody(t *testing.T) {
	payload := bytes.Repeat([]byte{0xAB}, 100_000)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/roms/42/content/game.zip", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "expected basic auth")
		assert.Equal(t, "alice", user)
		assert.Equal(t, "s3cret", pass)

		w.Write(payload)
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, "alice", "s3cret")

	var buf bytes.Buffer
	var reported int64
	n, err := client.FetchFile(context.Background(), 42, "game.zip", &buf, func(inc int64) { reported += inc })

	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
	assert.Equal(t, int64(len(payload)), reported)
}

func TestFetchFileEscapesFileName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/roms/7/content/weird%20name%3F.zip", r.URL.EscapedPath())
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, "u", "p")

	var buf bytes.Buffer
	_, err := client.FetchFile(context.Background(), 7, "weird name?.zip", &buf, nil)
	require.NoError(t, err)
}

func TestFetchFileRejectsNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, "u", "p")

	var buf bytes.Buffer
	_, err := client.FetchFile(context.Background(), 1, "missing.zip", &buf, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindDownloadFailed, errors.KindOf(err))
}

func TestFetchFileRejectsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, "u", "wrong")

	var buf bytes.Buffer
	_, err := client.FetchFile(context.Background(), 1, "game.zip", &buf, nil)
	require.Error(t, err)
	assert.True(t, errors.IsAuthFailure(err))
}

func TestFetchFileRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, "u", "p")

	var buf bytes.Buffer
	_, err := client.FetchFile(context.Background(), 1, "game.zip", &buf, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty body")
}

func TestFetchFileRejectsHTMLBodyOnSuccessStatus(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"content_type_header", "text/html; charset=utf-8", "<html><body>login</body></html>"},
		{"sniffed_body", "application/octet-stream", "<!DOCTYPE html><html>captive portal</html>"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			client := catalog.NewClient(srv.URL, "u", "p")

			var buf bytes.Buffer
			_, err := client.FetchFile(context.Background(), 1, "game.zip", &buf, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "HTML error page")
		})
	}
}

func TestFetchFileSmallBinaryBody(t *testing.T) {
	// Bodies shorter than the sniff window still stream correctly.
	payload := []byte{0x50, 0x4B, 0x03, 0x04, 0x00}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, "u", "p")

	var buf bytes.Buffer
	n, err := client.FetchFile(context.Background(), 1, "tiny.zip", &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestFetchFileUnconfiguredBaseURL(t *testing.T) {
	client := catalog.NewClient("", "u", "p")

	var buf bytes.Buffer
	_, err := client.FetchFile(context.Background(), 1, "game.zip", &buf, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindNotConfigured, errors.KindOf(err))
}

func TestFetchFileCancelledDuringInitialRead(t *testing.T) {
	// The server sends headers but no body, so the client is blocked in
	// its first body read when the context fires.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := catalog.NewClient(srv.URL, "u", "p")

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()

	var buf bytes.Buffer
	_, err := client.FetchFile(ctx, 1, "game.zip", &buf, nil)
	require.Error(t, err)
	assert.Equal(t, errors.KindCancelled, errors.KindOf(err))
}
