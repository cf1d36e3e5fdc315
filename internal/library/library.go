// Package library is the filesystem-backed store of downloaded ROM sets.
// Each ROM lives in its own directory holding the content files plus one
// sidecar metadata file; the sidecar is the record of truth, stray
// directories without one are invisible.
package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/romvault/romvault/internal/errors"
)

// MetadataFileName is the sidecar written next to the content files.
const MetadataFileName = ".metadata.json"

// File describes one content file of a stored ROM set.
type File struct {
	FileName      string `json:"fileName"`
	FileSizeBytes int64  `json:"fileSizeBytes"`
	MD5Hash       string `json:"md5Hash,omitempty"`
}

// Record is the sidecar metadata for one downloaded ROM set.
type Record struct {
	ROMID        int64     `json:"romId"`
	ROMName      string    `json:"romName"`
	PlatformName string    `json:"platformName"`
	PlatformSlug string    `json:"platformSlug"`
	DownloadedAt time.Time `json:"downloadedAt"`
	Files        []File    `json:"files"`

	// Derived at load time, never serialized.
	RelativePath   string `json:"-"`
	TotalSizeBytes int64  `json:"-"`
}

// Store manages ROM directories under one base directory, laid out as
// <base>/<platform>/<rom>/.
type Store struct {
	baseDir string
}

// NewStore creates a store rooted at baseDir. The directory is created
// lazily on first save.
func NewStore(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// BaseDir returns the library root.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// DirFor returns the absolute directory a record's files live in.
func (s *Store) DirFor(platformName, romName string) string {
	return filepath.Join(s.baseDir, RelativePath(platformName, romName))
}

// RelativePath builds the single-level-deep, traversal-safe directory
// path for a ROM.
func RelativePath(platformName, romName string) string {
	return filepath.Join(sanitize(platformName), sanitize(romName))
}

// sanitize replaces path separators so a platform or ROM name can never
// escape its directory level. Names that would collapse the level
// entirely (empty, "." or "..") are neutralized too; ".." joined under
// the base would resolve to the library root itself.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, string(os.PathSeparator), "-")
	switch name {
	case "", ".", "..":
		return "-"
	}
	return name
}

// Enumerate scans the base directory and returns every valid record,
// most recently downloaded first. File sizes reflect what is actually on
// disk, not what the sidecar claims. I/O errors on individual directories
// are swallowed; listing is best-effort.
func (s *Store) Enumerate() ([]Record, error) {
	platforms, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewRepositoryError(err, s.baseDir)
	}

	var records []Record

	for _, platform := range platforms {
		if !platform.IsDir() {
			continue
		}

		platformDir := filepath.Join(s.baseDir, platform.Name())
		romDirs, err := os.ReadDir(platformDir)
		if err != nil {
			log.Debug().Err(err).Str("dir", platformDir).Msg("skipping unreadable platform directory")
			continue
		}

		for _, romDir := range romDirs {
			if !romDir.IsDir() {
				continue
			}

			dir := filepath.Join(platformDir, romDir.Name())
			rec, ok := s.readRecord(dir)
			if !ok {
				continue
			}

			rec.RelativePath = filepath.Join(platform.Name(), romDir.Name())
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].DownloadedAt.After(records[j].DownloadedAt)
	})

	return records, nil
}

// readRecord loads a sidecar and substitutes the actual on-disk size for
// every file that exists. A missing sidecar means "no record."
func (s *Store) readRecord(dir string) (Record, bool) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFileName))
	if err != nil {
		return Record{}, false
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Debug().Err(err).Str("dir", dir).Msg("skipping unreadable sidecar")
		return Record{}, false
	}

	var total int64
	for i := range rec.Files {
		if info, err := os.Stat(filepath.Join(dir, rec.Files[i].FileName)); err == nil {
			rec.Files[i].FileSizeBytes = info.Size()
		} else {
			rec.Files[i].FileSizeBytes = 0
		}
		total += rec.Files[i].FileSizeBytes
	}
	rec.TotalSizeBytes = total

	return rec, true
}

// Find returns the record with the given catalog ROM id, or
// ErrRecordNotFound.
func (s *Store) Find(romID int64) (*Record, error) {
	records, err := s.Enumerate()
	if err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].ROMID == romID {
			return &records[i], nil
		}
	}

	return nil, errors.ErrRecordNotFound
}

// Save writes the sidecar for a record, creating the target directory if
// absent. An existing sidecar for the same directory is overwritten.
func (s *Store) Save(rec *Record) error {
	if rec == nil {
		return errors.New("cannot save nil record")
	}

	dir := s.DirFor(rec.PlatformName, rec.ROMName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewRepositoryError(fmt.Errorf("failed to create directory: %w", err), dir)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.NewRepositoryError(fmt.Errorf("failed to marshal metadata: %w", err), dir)
	}

	if err := os.WriteFile(filepath.Join(dir, MetadataFileName), data, 0o644); err != nil {
		return errors.NewRepositoryError(fmt.Errorf("failed to write metadata: %w", err), dir)
	}

	rec.RelativePath = RelativePath(rec.PlatformName, rec.ROMName)

	return nil
}

// Delete removes the record's whole directory. An already-absent
// directory is success.
func (s *Store) Delete(rec *Record) error {
	if rec == nil {
		return errors.New("cannot delete nil record")
	}

	dir := s.DirFor(rec.PlatformName, rec.ROMName)
	if err := os.RemoveAll(dir); err != nil {
		return errors.NewRepositoryError(err, dir)
	}

	// Drop the platform directory too once its last ROM is gone.
	platformDir := filepath.Dir(dir)
	if entries, err := os.ReadDir(platformDir); err == nil && len(entries) == 0 {
		if err := os.Remove(platformDir); err != nil {
			log.Debug().Err(err).Str("dir", platformDir).Msg("failed to remove empty platform directory")
		}
	}

	return nil
}

// TotalSize returns the summed on-disk size of every stored ROM set.
func (s *Store) TotalSize() (int64, error) {
	records, err := s.Enumerate()
	if err != nil {
		return 0, err
	}

	var total int64
	for i := range records {
		total += records[i].TotalSizeBytes
	}

	return total, nil
}

// Count returns the number of stored ROM sets.
func (s *Store) Count() (int, error) {
	records, err := s.Enumerate()
	if err != nil {
		return 0, err
	}

	return len(records), nil
}
