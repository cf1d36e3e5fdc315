package transfer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/romvault/romvault/internal/errors"
	"github.com/romvault/romvault/internal/library"
	"github.com/romvault/romvault/internal/validator"
)

// DownloadRequest asks for a catalog ROM to be stored in the local
// library.
type DownloadRequest struct {
	ROMID        int64
	Name         string
	PlatformName string
	PlatformSlug string
	Files        []FileSpec
}

// TotalBytes is the requested size of the whole set.
func (r DownloadRequest) TotalBytes() int64 {
	var total int64
	for _, f := range r.Files {
		total += f.SizeBytes
	}
	return total
}

// DownloadToLibrary fetches every file of a ROM from the catalog into
// the local library. Admission control runs before any network call; a
// hard failure or cancellation removes the whole destination directory
// and commits nothing.
func (e *Executor) DownloadToLibrary(ctx context.Context, req DownloadRequest, onProgress ProgressFunc) (*library.Record, error) {
	// Catalog-supplied file names are joined under the destination
	// directory; anything that could leave it is rejected before any
	// byte is written, or rollback could not clean up after a failure.
	for _, f := range req.Files {
		if !safeFileName(f.Name) {
			return nil, errors.NewValidationError("unsafe file name", f.Name)
		}
	}

	required := uint64(req.TotalBytes())

	if err := os.MkdirAll(e.library.BaseDir(), 0o755); err != nil {
		return nil, errors.NewRepositoryError(err, e.library.BaseDir())
	}

	available, err := e.space.AvailableBytes(e.library.BaseDir())
	if err != nil {
		return nil, errors.NewRepositoryError(err, e.library.BaseDir())
	}
	if available < required {
		return nil, errors.NewStorageError(required, available)
	}

	dir := e.library.DirFor(req.PlatformName, req.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.NewRepositoryError(err, dir)
	}

	progress := newTracker(req.Files, onProgress)

	log.Info().
		Int64("rom", req.ROMID).
		Str("name", req.Name).
		Int("files", len(req.Files)).
		Uint64("bytes", required).
		Msg("starting download")

	for _, f := range req.Files {
		if err := e.downloadOne(ctx, req.ROMID, dir, f, progress.sink(f.Name)); err != nil {
			e.rollback(dir, req.ROMID)
			return nil, err
		}
	}

	record := &library.Record{
		ROMID:        req.ROMID,
		ROMName:      req.Name,
		PlatformName: req.PlatformName,
		PlatformSlug: req.PlatformSlug,
		DownloadedAt: time.Now(),
	}

	// The committed record reflects realized bytes on disk, not the
	// requested sizes.
	var realized int64
	for _, f := range req.Files {
		size := int64(0)
		if info, err := os.Stat(filepath.Join(dir, f.Name)); err == nil {
			size = info.Size()
		}
		realized += size
		record.Files = append(record.Files, library.File{FileName: f.Name, FileSizeBytes: size})
	}
	record.TotalSizeBytes = realized

	if err := e.library.Save(record); err != nil {
		e.rollback(dir, req.ROMID)
		return nil, errors.NewKind(errors.KindSaveFailed, err, dir)
	}

	log.Info().Int64("rom", req.ROMID).Int64("bytes", realized).Msg("download complete")

	return record, nil
}

func (e *Executor) downloadOne(ctx context.Context, romID int64, dir string, f FileSpec, sink func(int64)) error {
	select {
	case <-ctx.Done():
		return errors.NewKind(errors.KindCancelled, ctx.Err(), f.Name)
	default:
	}

	localPath := filepath.Join(dir, f.Name)

	dst, err := os.Create(localPath)
	if err != nil {
		return errors.NewRepositoryError(err, localPath)
	}

	_, fetchErr := e.catalog.FetchFile(ctx, romID, f.Name, dst, sink)
	closeErr := dst.Close()
	if fetchErr != nil {
		return fetchErr
	}
	if closeErr != nil {
		return errors.NewRepositoryError(closeErr, localPath)
	}

	// A size mismatch after a successful fetch is tolerated: the catalog
	// may transcode or recompress, legitimately changing the size.
	if result := validator.Validate(localPath, f.SizeBytes, ""); !result.Valid {
		log.Warn().
			Str("file", f.Name).
			Int64("expected", f.SizeBytes).
			Int64("actual", result.ActualSize).
			Msg("downloaded size differs from catalog size")
	}

	return nil
}

// safeFileName reports whether a name stays inside its directory when
// joined. Separators and the dot entries are the only ways out.
func safeFileName(name string) bool {
	switch name {
	case "", ".", "..":
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}

// rollback removes a partially populated destination directory.
func (e *Executor) rollback(dir string, romID int64) {
	if err := os.RemoveAll(dir); err != nil {
		log.Error().Err(err).Str("dir", dir).Int64("rom", romID).Msg("rollback failed")
		return
	}

	log.Info().Str("dir", dir).Int64("rom", romID).Msg("rolled back partial download")
}
