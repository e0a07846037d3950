package tts

import (
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// MockTTSEngine prints what it would say instead of producing audio.
type MockTTSEngine struct {
	mu      sync.Mutex
	out     io.Writer
	playing bool
	paused  bool
	speed   float64
	volume  float64
	voice   string
	spoken  []string
}

func NewMockTTSEngine(c Config, out io.Writer) *MockTTSEngine {
	if out == nil {
		out = io.Discard
	}
	voice := c.Voice
	if voice == "" {
		voice = "default"
	}
	speed := c.Speed
	if speed <= 0 {
		speed = 1.0
	}
	return &MockTTSEngine{
		out:    out,
		speed:  speed,
		volume: c.Volume,
		voice:  voice,
	}
}

func (m *MockTTSEngine) GetAvailableVoices() ([]string, error) {
	return []string{"mock-voice"}, nil
}

// Speak records the text and reports an estimated reading time at 150 words
// per minute.
func (m *MockTTSEngine) Speak(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	words := len(strings.Fields(text))
	duration := time.Duration(float64(words) / 150.0 / m.speed * float64(time.Minute)).Round(time.Second)

	color.New(color.FgYellow).Fprintf(m.out, "🔊 Reading aloud %d words... (simulated for %v)\n", words, duration)

	m.spoken = append(m.spoken, text)
	m.playing = true
	m.paused = false
	return nil
}

// Spoken returns everything passed to Speak.
func (m *MockTTSEngine) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.spoken))
	copy(out, m.spoken)
	return out
}

func (m *MockTTSEngine) SetVoice(voice string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.voice = voice
	return nil
}

func (m *MockTTSEngine) SetSpeed(speed float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.speed = speed
	return nil
}

func (m *MockTTSEngine) SetVolume(volume float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

func (m *MockTTSEngine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
	m.paused = false
	return nil
}

func (m *MockTTSEngine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		m.paused = true
	}
	return nil
}

func (m *MockTTSEngine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused {
		m.paused = false
	}
	return nil
}

func (m *MockTTSEngine) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.paused
}

func (m *MockTTSEngine) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Voice returns the selected voice.
func (m *MockTTSEngine) Voice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voice
}
