package remote

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/romvault/romvault/internal/profile"
)

// Mock is an in-memory Client for tests. Operations record their inputs
// and return the configured errors.
type Mock struct {
	mu sync.Mutex

	ConnectErr  error
	ListErr     error
	UploadErr   error
	DownloadErr error

	// Entries returned by List, keyed by directory path.
	Entries map[string][]Entry

	// Contents returned by Download, keyed by remote path.
	Contents map[string][]byte

	// ConnectDelayCtx, when set, makes Connect block until the context
	// is done, to exercise probe timeouts.
	ConnectDelayCtx bool

	// ProgressChunk splits Upload progress reporting into increments of
	// this many bytes (0 reports one increment for the whole file).
	ProgressChunk int64

	// DoubleReport makes Upload report every progress increment twice,
	// to exercise the executor's completion guard.
	DoubleReport bool

	Connected   bool
	Closed      bool
	ConnectCnt  int
	ListCnt     int
	MkdirPaths  []string
	UploadPaths []string
	Uploaded    map[string][]byte
	LastCreds   profile.Credentials
	LastMethod  profile.AuthMethod
}

// NewMock returns an empty mock client.
func NewMock() *Mock {
	return &Mock{
		Entries:  make(map[string][]Entry),
		Contents: make(map[string][]byte),
		Uploaded: make(map[string][]byte),
	}
}

// MockFactory returns a Factory handing out the same mock on every call.
func MockFactory(m *Mock) Factory {
	return func() Client { return m }
}

func (m *Mock) Connect(ctx context.Context, creds profile.Credentials, method profile.AuthMethod) error {
	m.mu.Lock()
	m.ConnectCnt++
	m.LastCreds = creds
	m.LastMethod = method
	delay := m.ConnectDelayCtx
	err := m.ConnectErr
	m.mu.Unlock()

	if delay {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.Connected = true
	m.mu.Unlock()

	return nil
}

func (m *Mock) List(_ context.Context, path string) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCnt++
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	return m.Entries[path], nil
}

func (m *Mock) Upload(ctx context.Context, r io.Reader, remotePath string, progress func(int64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	uploadErr := m.UploadErr
	chunk := m.ProgressChunk
	double := m.DoubleReport
	m.mu.Unlock()

	if uploadErr != nil {
		return uploadErr
	}

	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.UploadPaths = append(m.UploadPaths, remotePath)
	m.Uploaded[remotePath] = buf.Bytes()
	m.mu.Unlock()

	if progress != nil {
		report := func(inc int64) {
			progress(inc)
			if double {
				progress(inc)
			}
		}
		if chunk <= 0 {
			report(n)
		} else {
			for sent := int64(0); sent < n; sent += chunk {
				inc := chunk
				if n-sent < chunk {
					inc = n - sent
				}
				report(inc)
			}
		}
	}

	return nil
}

func (m *Mock) Download(ctx context.Context, remotePath string, w io.Writer, progress func(int64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	downloadErr := m.DownloadErr
	content := m.Contents[remotePath]
	m.mu.Unlock()

	if downloadErr != nil {
		return downloadErr
	}

	n, err := w.Write(content)
	if err != nil {
		return err
	}
	if progress != nil {
		progress(int64(n))
	}

	return nil
}

func (m *Mock) Mkdir(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.MkdirPaths = append(m.MkdirPaths, path)
	return nil
}

func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	m.Connected = false
	return nil
}
