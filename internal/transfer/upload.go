package transfer

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/romvault/romvault/internal/duplicate"
	"github.com/romvault/romvault/internal/errors"
	"github.com/romvault/romvault/internal/profile"
	"github.com/romvault/romvault/internal/secrets"
)

// LocalFile is one local file queued for upload.
type LocalFile struct {
	LocalPath string
	SizeBytes int64
}

// Name returns the file's name at the destination.
func (f LocalFile) Name() string {
	return filepath.Base(f.LocalPath)
}

// PreflightDuplicates reports which of the queued files already exist in
// remoteDir on the profile's server. Advisory: any failure, including
// unresolvable credentials, yields no warnings.
func (e *Executor) PreflightDuplicates(ctx context.Context, p *profile.Profile, remoteDir string, files []LocalFile) []duplicate.Warning {
	creds, err := secrets.Resolve(e.secrets, p)
	if err != nil {
		log.Debug().Err(err).Str("profile", p.ID.String()).Msg("duplicate detection skipped: credentials unavailable")
		return nil
	}

	candidates := make([]duplicate.Candidate, 0, len(files))
	for _, f := range files {
		candidates = append(candidates, duplicate.Candidate{Name: f.Name(), SizeBytes: f.SizeBytes})
	}

	return duplicate.Detect(ctx, e.factory(), creds, p.AuthMethod, remoteDir, candidates)
}

// Upload streams the given files to remoteDir on the profile's server,
// in caller order. Credentials are resolved before any network I/O; a
// missing required secret fails immediately. Each file gets its own
// connection, released whether the file succeeds or not.
func (e *Executor) Upload(ctx context.Context, p *profile.Profile, remoteDir string, files []LocalFile, onProgress ProgressFunc) error {
	// Destination names are basenames, so two queued files with the
	// same basename would overwrite each other remotely and share one
	// progress entry.
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		name := f.Name()
		if _, dup := seen[name]; dup {
			return errors.NewValidationError("duplicate file name in transfer set", name)
		}
		seen[name] = struct{}{}
	}

	creds, err := secrets.Resolve(e.secrets, p)
	if err != nil {
		return err
	}

	specs := make([]FileSpec, 0, len(files))
	for _, f := range files {
		specs = append(specs, FileSpec{Name: f.Name(), SizeBytes: f.SizeBytes})
	}
	progress := newTracker(specs, onProgress)

	log.Info().
		Str("profile", p.ID.String()).
		Str("dir", remoteDir).
		Int("files", len(files)).
		Msg("starting upload")

	for _, f := range files {
		select {
		case <-ctx.Done():
			return errors.NewKind(errors.KindCancelled, ctx.Err(), f.Name())
		default:
		}

		if err := e.uploadOne(ctx, creds, p.AuthMethod, remoteDir, f, progress.sink(f.Name())); err != nil {
			log.Error().Err(err).Str("file", f.Name()).Msg("upload failed")
			return err
		}
	}

	return nil
}

// uploadOne opens its own connection and guarantees release on return.
func (e *Executor) uploadOne(ctx context.Context, creds profile.Credentials, method profile.AuthMethod, remoteDir string, f LocalFile, sink func(int64)) error {
	client := e.factory()
	defer client.Close()

	if err := client.Connect(ctx, creds, method); err != nil {
		return err
	}

	// The target directory may not exist yet; creation failures surface
	// on the upload itself.
	if err := client.Mkdir(ctx, remoteDir); err != nil {
		log.Debug().Err(err).Str("dir", remoteDir).Msg("mkdir failed")
	}

	src, err := os.Open(f.LocalPath)
	if err != nil {
		return errors.NewRepositoryError(err, f.LocalPath)
	}
	defer src.Close()

	remotePath := path.Join(remoteDir, f.Name())
	if err := client.Upload(ctx, src, remotePath, sink); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return errors.NewKind(errors.KindCancelled, err, remotePath)
		}
		return err
	}

	return nil
}
