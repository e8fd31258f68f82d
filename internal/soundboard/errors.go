package soundboard

import "errors"

// Sentinel errors returned by soundboard commands. Load and playback failures
// are never returned; they are recorded in asset state and the diagnostic log.
var (
	// ErrNotReady indicates a play request for an asset that is not loaded.
	ErrNotReady = errors.New("sound not loaded")

	// ErrInvalidVolume indicates a volume outside [0, 1] or NaN.
	ErrInvalidVolume = errors.New("volume must be between 0 and 1")

	// ErrUnknownAsset indicates a key that is not in the catalog.
	ErrUnknownAsset = errors.New("unknown asset")

	// ErrReleaseWhileLoading indicates a release of an asset with a load in flight.
	ErrReleaseWhileLoading = errors.New("cannot release asset while loading")

	// ErrInvalidTransition indicates a load state transition that is not allowed
	// from the asset's current state.
	ErrInvalidTransition = errors.New("invalid load state transition")

	// ErrAlreadyShutdown indicates the soundboard has been shut down.
	ErrAlreadyShutdown = errors.New("soundboard already shut down")
)
