package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

// SpeakerSink plays through the system audio device. The device is opened on
// the first Resume, mirroring how browsers only start audio after a gesture.
type SpeakerSink struct {
	mu     sync.Mutex
	rate   beep.SampleRate
	mixer  *beep.Mixer
	opened bool
}

func NewSpeakerSink(rate beep.SampleRate) *SpeakerSink {
	return &SpeakerSink{rate: rate, mixer: &beep.Mixer{}}
}

func (s *SpeakerSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil
	}
	if err := speaker.Init(s.rate, s.rate.N(100*time.Millisecond)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	speaker.Play(s.mixer)
	s.opened = true
	return nil
}

func (s *SpeakerSink) Play(st beep.Streamer) {
	s.mu.Lock()
	opened := s.opened
	s.mu.Unlock()
	if !opened {
		return
	}
	speaker.Lock()
	s.mixer.Add(st)
	speaker.Unlock()
}

// Close silences the mixer and releases the device.
func (s *SpeakerSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return
	}
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	speaker.Close()
	s.opened = false
}
