package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

const (
	probeTimeout   = 10 * time.Second
	statusTTL      = 30 * time.Second
	catalogTimeout = 5 * time.Minute
)

var (
	libraryDir = filepath.Join(xdg.UserDirs.Documents, "ROMs")
	dataDir    = filepath.Join(xdg.DataHome, configFileName)
)
