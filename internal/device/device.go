// Package device answers how much storage is available for a download,
// used for admission control before any network I/O.
package device

import (
	"github.com/shirou/gopsutil/v3/disk"
)

// Space reports available bytes on the volume holding a path.
type Space interface {
	AvailableBytes(path string) (uint64, error)
}

// DiskSpace is the live Space implementation backed by OS disk usage.
type DiskSpace struct{}

func NewDiskSpace() *DiskSpace {
	return &DiskSpace{}
}

func (DiskSpace) AvailableBytes(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}

	return usage.Free, nil
}

// FixedSpace is a Space test double reporting a constant free size.
type FixedSpace uint64

func (f FixedSpace) AvailableBytes(string) (uint64, error) {
	return uint64(f), nil
}
