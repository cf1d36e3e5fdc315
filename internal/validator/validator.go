// Package validator checks a transferred file against its expected size
// and checksum.
package validator

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// NoExpectedSize disables the size check.
const NoExpectedSize int64 = -1

// Result describes the outcome of validating one file. A validation with
// no expected values supplied is trivially valid.
type Result struct {
	Valid            bool
	ActualSize       int64
	ExpectedSize     int64 // NoExpectedSize when not checked
	ActualChecksum   string
	ExpectedChecksum string
	Message          string
}

// Validate computes the file's actual size and, when expectedChecksum is
// non-empty, a SHA-256 digest of its full contents. Size and checksum
// mismatches are independent checks reported together. An unreadable
// file yields an invalid result, never a fault.
func Validate(path string, expectedSize int64, expectedChecksum string) Result {
	result := Result{
		ExpectedSize:     expectedSize,
		ExpectedChecksum: expectedChecksum,
	}

	f, err := os.Open(path)
	if err != nil {
		result.Message = fmt.Sprintf("cannot read file: %v", err)
		return result
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		result.Message = fmt.Sprintf("cannot stat file: %v", err)
		return result
	}
	result.ActualSize = info.Size()

	if expectedChecksum != "" {
		h := sha256.New()
		if _, err := io.Copy(h, f); err != nil {
			result.Message = fmt.Sprintf("cannot read file: %v", err)
			return result
		}
		result.ActualChecksum = hex.EncodeToString(h.Sum(nil))
	}

	var problems []string

	if expectedSize != NoExpectedSize && result.ActualSize != expectedSize {
		problems = append(problems, fmt.Sprintf("size mismatch: expected %d bytes, got %d bytes", expectedSize, result.ActualSize))
	}

	if expectedChecksum != "" && !strings.EqualFold(result.ActualChecksum, expectedChecksum) {
		problems = append(problems, fmt.Sprintf("checksum mismatch: expected %s, got %s", expectedChecksum, result.ActualChecksum))
	}

	if len(problems) > 0 {
		result.Message = strings.Join(problems, "; ")
		return result
	}

	result.Valid = true
	return result
}
