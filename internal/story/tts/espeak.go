// Cross-platform eSpeak implementation
package tts

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// ESpeakEngine implements TTS using eSpeak/eSpeak-NG
type ESpeakEngine struct {
	config  Config
	path    string
	cmd     *exec.Cmd
	playing bool
	paused  bool
	mutex   sync.RWMutex
}

// newESpeakEngine creates a new eSpeak TTS engine
func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	if err := exec.Command(espeakPath, "--version").Run(); err != nil {
		return nil, fmt.Errorf("eSpeak test failed: %w", err)
	}

	return &ESpeakEngine{config: config, path: espeakPath}, nil
}

func findESpeakExecutable() (string, error) {
	for _, candidate := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

// espeakArgs builds the command line for text. Speed scales the default 175
// words per minute; volume scales the default amplitude of 100.
func espeakArgs(config Config, text string) []string {
	args := []string{}

	if config.Voice != "" && config.Voice != "default" {
		args = append(args, "-v", config.Voice)
	}

	speed := config.Speed
	if speed <= 0 {
		speed = 1.0
	}
	args = append(args, "-s", strconv.Itoa(int(175*speed)))
	args = append(args, "-a", strconv.Itoa(int(100*config.Volume)))

	return append(args, text)
}

// Speak starts reading in the background and returns immediately.
func (e *ESpeakEngine) Speak(text string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.playing {
		return fmt.Errorf("already playing")
	}

	cmd := exec.Command(e.path, espeakArgs(e.config, text)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start eSpeak: %w", err)
	}

	e.cmd = cmd
	e.playing = true
	e.paused = false

	go func() {
		err := cmd.Wait()

		e.mutex.Lock()
		stopped := !e.playing
		e.playing = false
		e.paused = false
		e.mutex.Unlock()

		if err != nil && !stopped {
			logrus.WithError(err).Warn("eSpeak exited with error")
		}
	}()

	return nil
}

func (e *ESpeakEngine) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.playing && e.cmd != nil && e.cmd.Process != nil {
		e.playing = false
		if err := e.cmd.Process.Kill(); err != nil {
			return err
		}
	}

	e.playing = false
	e.paused = false
	return nil
}

func (e *ESpeakEngine) Pause() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.playing || e.paused || e.cmd == nil || e.cmd.Process == nil {
		return nil
	}

	// eSpeak has no pause of its own; the process is suspended instead
	if err := e.pauseProcess(); err != nil {
		return err
	}
	e.paused = true
	return nil
}

func (e *ESpeakEngine) Resume() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.paused || e.cmd == nil || e.cmd.Process == nil {
		return nil
	}

	if err := e.resumeProcess(); err != nil {
		return err
	}
	e.paused = false
	return nil
}

func (e *ESpeakEngine) SetVoice(voice string) error {
	voices, err := e.GetAvailableVoices()
	if err != nil {
		return err
	}

	for _, v := range voices {
		if v == voice {
			e.mutex.Lock()
			e.config.Voice = voice
			e.mutex.Unlock()
			return nil
		}
	}

	return fmt.Errorf("voice '%s' not available", voice)
}

func (e *ESpeakEngine) SetSpeed(speed float64) error {
	if speed <= 0 || speed > 3.0 {
		return fmt.Errorf("speed must be between 0.1 and 3.0")
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.config.Speed = speed
	return nil
}

func (e *ESpeakEngine) SetVolume(volume float64) error {
	if volume < 0 || volume > 2.0 {
		return fmt.Errorf("volume must be between 0 and 2.0")
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.config.Volume = volume
	return nil
}

func (e *ESpeakEngine) IsPlaying() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.playing && !e.paused
}

func (e *ESpeakEngine) IsPaused() bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	return e.paused
}

func (e *ESpeakEngine) GetAvailableVoices() ([]string, error) {
	output, err := exec.Command(e.path, "--voices").Output()
	if err != nil {
		return nil, err
	}

	return parseESpeakVoices(string(output)), nil
}

// parseESpeakVoices reads the VoiceName column of `espeak --voices`:
// Pty Language Age/Gender VoiceName File Other Languages
func parseESpeakVoices(output string) []string {
	voices := make([]string, 0)

	for i, line := range strings.Split(output, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}

	return voices
}
