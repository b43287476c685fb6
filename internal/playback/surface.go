package playback

// Surface is an opaque media-rendering surface. The service only samples
// position and duration for progress tracking; the remaining controls
// mirror what a player front-end exposes.
type Surface interface {
	Play()
	Pause()
	Seek(seconds float64)
	SetVolume(volume float64)
	SetMuted(muted bool)
	SetRate(rate float64)
	SetFullscreen(fullscreen bool)

	CurrentTime() float64
	Duration() float64
}
