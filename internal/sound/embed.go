// Package sound bundles the default audio resources into the binary.
package sound

import (
	"embed"
	"io/fs"
)

// soundFiles contains the WAV files referenced by the default catalog.
//
//go:embed sounds/*.wav
var soundFiles embed.FS

// Bundle returns the embedded resources rooted at the sounds directory,
// so resource names are bare file names such as "correct.wav".
func Bundle() fs.FS {
	sub, err := fs.Sub(soundFiles, "sounds")
	if err != nil {
		panic(err) // static path, cannot fail
	}
	return sub
}
