package notifier

import (
	"fmt"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"
)

const beepSampleRate = beep.SampleRate(44100)

// tone is one pulse of a cue pattern.
type tone struct {
	freq     int
	duration time.Duration
}

// cuePatterns defines the pulse sequence for each cue. A zero frequency is a
// rest between pulses.
var cuePatterns = map[Cue][]tone{
	CueCritical: {{220, 150 * time.Millisecond}, {0, 80 * time.Millisecond}, {220, 150 * time.Millisecond}},
	CueWarning:  {{440, 200 * time.Millisecond}},
	CueSignal:   {{523, 120 * time.Millisecond}, {784, 120 * time.Millisecond}},
	CueDefault:  {{880, 120 * time.Millisecond}},
}

// BeepPlayer synthesizes sine-wave cue patterns through the system speaker.
type BeepPlayer struct {
	logger *zap.Logger
}

// NewBeepPlayer initializes the audio device. An initialization failure is
// returned so the caller can fall back to silent operation.
func NewBeepPlayer(logger *zap.Logger) (*BeepPlayer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := speaker.Init(beepSampleRate, beepSampleRate.N(50*time.Millisecond)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return &BeepPlayer{logger: logger}, nil
}

// Play queues the cue's pulse sequence on the speaker mixer and returns
// without waiting for playback to finish.
func (p *BeepPlayer) Play(cue Cue) error {
	pattern, ok := cuePatterns[cue]
	if !ok {
		pattern = cuePatterns[CueDefault]
	}

	parts := make([]beep.Streamer, 0, len(pattern))
	for _, t := range pattern {
		n := beepSampleRate.N(t.duration)
		if t.freq == 0 {
			parts = append(parts, beep.Silence(n))
			continue
		}
		s, err := generators.SinTone(beepSampleRate, t.freq)
		if err != nil {
			return fmt.Errorf("generate tone %dhz: %w", t.freq, err)
		}
		parts = append(parts, beep.Take(n, s))
	}

	speaker.Play(beep.Seq(parts...))
	return nil
}

// Close shuts down the audio device.
func (p *BeepPlayer) Close() error {
	speaker.Close()
	return nil
}
