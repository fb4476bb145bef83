package notifier

import (
	"go.uber.org/zap"
)

// Cue identifies one of the audio patterns played for an alert.
type Cue string

const (
	// CueCritical is a double low-tone pulse.
	CueCritical Cue = "critical"
	// CueWarning is a single mid-tone pulse.
	CueWarning Cue = "warning"
	// CueSignal is an ascending two-tone chirp.
	CueSignal Cue = "signal"
	// CueDefault is a single high-tone pulse.
	CueDefault Cue = "default"
)

// CueFor maps an alert's priority and type to the audio cue to play.
func CueFor(alert Alert) Cue {
	switch {
	case alert.Priority == PriorityCritical:
		return CueCritical
	case alert.Priority == PriorityHigh, alert.Type == TypeWarning:
		return CueWarning
	case alert.Type == TypeSignal:
		return CueSignal
	default:
		return CueDefault
	}
}

// Player plays an audio cue. Implementations are substituted in tests so the
// core can run without an audio device.
type Player interface {
	Play(cue Cue) error
	Close() error
}

// SoundNotifier plays an audio cue per alert. Playback is skipped entirely
// when the enabled func reports false, and playback errors are logged, never
// propagated.
type SoundNotifier struct {
	logger  *zap.Logger
	player  Player
	enabled func() bool
}

// NewSoundNotifier creates a SoundNotifier. enabled is consulted on every
// alert so a preference toggle takes effect immediately; nil means always on.
func NewSoundNotifier(logger *zap.Logger, player Player, enabled func() bool) *SoundNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &SoundNotifier{
		logger:  logger,
		player:  player,
		enabled: enabled,
	}
}

// Notify plays the cue for the alert.
func (sn *SoundNotifier) Notify(alert Alert) {
	if sn.player == nil || !sn.enabled() {
		return
	}

	cue := CueFor(alert)
	if err := sn.player.Play(cue); err != nil {
		// Audio engine may not be permitted to run yet; the alert is still
		// recorded and displayed without sound.
		sn.logger.Warn("alert sound playback failed",
			zap.String("cue", string(cue)),
			zap.Error(err),
		)
	}
}

// Close releases the underlying player.
func (sn *SoundNotifier) Close() error {
	if sn.player == nil {
		return nil
	}
	return sn.player.Close()
}
