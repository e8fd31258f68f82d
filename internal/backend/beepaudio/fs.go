package beepaudio

import (
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/zjrosen/soundcheck/internal/sound"
)

// ResourceRoot returns a read-only filesystem for resolving resource names.
// An empty dir selects the bundle embedded in the binary.
func ResourceRoot(dir string) (afero.Fs, error) {
	if dir == "" {
		return afero.FromIOFS{FS: sound.Bundle()}, nil
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("sounds directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("sounds directory: %s is not a directory", dir)
	}
	return afero.NewReadOnlyFs(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}
