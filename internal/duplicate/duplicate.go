// Package duplicate flags name collisions in a remote directory before an
// upload. Detection is advisory: it never blocks or fails a transfer.
package duplicate

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/romvault/romvault/internal/profile"
	"github.com/romvault/romvault/internal/remote"
)

// Candidate is a file about to be uploaded.
type Candidate struct {
	Name      string
	SizeBytes int64
}

// Warning reports that a candidate's name already exists at the
// destination.
type Warning struct {
	FileName     string
	ExistingSize int64
	NewSize      int64
	RemotePath   string
}

// SizeMatch reports whether the remote file has exactly the candidate's size.
func (w Warning) SizeMatch() bool {
	return w.ExistingSize == w.NewSize
}

// Detect lists the target directory once and compares candidate names
// against non-directory entries. Any error, including the directory not
// existing yet, yields an empty warning set.
func Detect(ctx context.Context, client remote.Client, creds profile.Credentials, method profile.AuthMethod, dir string, candidates []Candidate) []Warning {
	if err := client.Connect(ctx, creds, method); err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("duplicate detection skipped: connect failed")
		return nil
	}
	defer client.Close()

	entries, err := client.List(ctx, dir)
	if err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("duplicate detection skipped: listing failed")
		return nil
	}

	sizesByName := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		sizesByName[e.Name] = e.Size
	}

	var warnings []Warning
	for _, c := range candidates {
		existing, ok := sizesByName[c.Name]
		if !ok {
			continue
		}
		warnings = append(warnings, Warning{
			FileName:     c.Name,
			ExistingSize: existing,
			NewSize:      c.SizeBytes,
			RemotePath:   dir,
		})
	}

	return warnings
}
