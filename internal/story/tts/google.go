package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/sirupsen/logrus"
)

const (
	defaultGoogleVoice = "en-GB-Chirp3-HD-Umbriel"
	chunkLimit         = 4800 // requests are capped at 5000 bytes of input
	engineDirName      = "google_classic"
)

type GoogleClassicTTSEngine struct {
	client       *texttospeech.Client
	ctx          context.Context
	voice        string
	speed        float64
	volume       float64
	cacheRootDir string
	storyID      int
	hasStory     bool

	mu        sync.Mutex
	isPlaying bool
	ctrl      *beep.Ctrl
	streamers []beep.StreamSeekCloser
}

var speakerInit sync.Once

var (
	_ StoryAwareEngine = (*GoogleClassicTTSEngine)(nil)
	_ CacheableEngine  = (*GoogleClassicTTSEngine)(nil)
)

func newGoogleClassicTTSEngine(config Config) (*GoogleClassicTTSEngine, error) {
	ctx := context.Background()
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	if err := os.MkdirAll(config.CachePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	voice := config.Voice
	if voice == "" || voice == "default" {
		voice = defaultGoogleVoice
	}

	return &GoogleClassicTTSEngine{
		client:       client,
		ctx:          ctx,
		voice:        voice,
		speed:        config.Speed,
		volume:       config.Volume,
		cacheRootDir: config.CachePath,
	}, nil
}

// SetStory sets the story whose audio Speak will cache.
func (g *GoogleClassicTTSEngine) SetStory(id int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.storyID = id
	g.hasStory = true
}

// cacheDirectory returns the cache directory for the current story.
func (g *GoogleClassicTTSEngine) cacheDirectory() string {
	return storyCacheDir(g.cacheRootDir, g.storyID, g.hasStory)
}

func storyCacheDir(root string, id int, hasStory bool) string {
	if !hasStory {
		return filepath.Join(root, engineDirName)
	}
	return filepath.Join(root, engineDirName, fmt.Sprintf("%03d", id))
}

func chunkFileName(prefix, hash string, i int) string {
	return fmt.Sprintf("%s_%s_%d.mp3", prefix, hash, i)
}

// languageCode derives "en-GB" from a voice name like "en-GB-Chirp3-HD-Umbriel".
func languageCode(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

func (g *GoogleClassicTTSEngine) Speak(text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.isPlaying {
		return fmt.Errorf("already playing")
	}

	cacheDir := g.cacheDirectory()
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	contentHash := md5Sum(text + g.voice)[:8]
	prefix := "story"
	if g.hasStory {
		prefix = strconv.Itoa(g.storyID)
	}

	chunks := splitIntoChunks(text, chunkLimit)
	if len(chunks) == 0 {
		return nil
	}
	paths := make([]string, len(chunks))
	for i := range chunks {
		paths[i] = filepath.Join(cacheDir, chunkFileName(prefix, contentHash, i))
	}

	for i, chunk := range chunks {
		if _, err := os.Stat(paths[i]); err == nil {
			continue
		}
		if err := g.synthesize(chunk, paths[i]); err != nil {
			return fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}
		logrus.WithFields(logrus.Fields{
			"chunk": i + 1,
			"of":    len(chunks),
			"file":  paths[i],
		}).Debug("Cached audio chunk")
	}

	return g.play(paths)
}

func (g *GoogleClassicTTSEngine) synthesize(chunk, path string) error {
	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}

	// Chirp voices reject speaking rate and gain
	if !strings.Contains(strings.ToLower(g.voice), "chirp") {
		audioCfg.SpeakingRate = g.speed
		audioCfg.VolumeGainDb = g.volume
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode(g.voice),
			Name:         g.voice,
		},
		AudioConfig: audioCfg,
	}

	resp, err := g.client.SynthesizeSpeech(g.ctx, req)
	if err != nil {
		return err
	}

	return os.WriteFile(path, resp.AudioContent, 0644)
}

// play queues the cached chunks on the speaker and returns immediately.
func (g *GoogleClassicTTSEngine) play(paths []string) error {
	var (
		streamers []beep.StreamSeekCloser
		format    beep.Format
	)

	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			closeAll(streamers)
			return fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
		}

		streamer, fmtInfo, err := mp3.Decode(f)
		if err != nil {
			f.Close()
			closeAll(streamers)
			return fmt.Errorf("failed to decode MP3 %s: %w", path, err)
		}
		streamers = append(streamers, streamer)
		format = fmtInfo
	}

	var initErr error
	speakerInit.Do(func() {
		initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if initErr != nil {
		closeAll(streamers)
		return initErr
	}

	seq := make([]beep.Streamer, len(streamers))
	for i, s := range streamers {
		seq[i] = s
	}

	g.streamers = streamers
	g.ctrl = &beep.Ctrl{Streamer: beep.Seq(seq...)}
	g.isPlaying = true

	// the callback runs under the speaker lock, so g.mu is taken elsewhere
	speaker.Play(beep.Seq(g.ctrl, beep.Callback(func() {
		go func() {
			g.mu.Lock()
			g.isPlaying = false
			g.mu.Unlock()
		}()
	})))

	return nil
}

func closeAll(streamers []beep.StreamSeekCloser) {
	for _, s := range streamers {
		s.Close()
	}
}

func (g *GoogleClassicTTSEngine) SetVoice(voice string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.voice = voice
	return nil
}

func (g *GoogleClassicTTSEngine) SetSpeed(speed float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.speed = speed
	return nil
}

func (g *GoogleClassicTTSEngine) SetVolume(volume float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.volume = volume
	return nil
}

func (g *GoogleClassicTTSEngine) Stop() error {
	speaker.Clear()

	g.mu.Lock()
	defer g.mu.Unlock()
	closeAll(g.streamers)
	g.streamers = nil
	g.isPlaying = false
	return nil
}

func (g *GoogleClassicTTSEngine) Pause() error {
	g.setPaused(true)
	return nil
}

func (g *GoogleClassicTTSEngine) Resume() error {
	g.setPaused(false)
	return nil
}

func (g *GoogleClassicTTSEngine) setPaused(paused bool) {
	g.mu.Lock()
	ctrl := g.ctrl
	g.mu.Unlock()

	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = paused
	speaker.Unlock()
}

func (g *GoogleClassicTTSEngine) IsPlaying() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isPlaying && (g.ctrl == nil || !g.ctrl.Paused)
}

func (g *GoogleClassicTTSEngine) GetAvailableVoices() ([]string, error) {
	resp, err := g.client.ListVoices(g.ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, err
	}
	voices := []string{}
	for _, v := range resp.Voices {
		voices = append(voices, v.Name)
	}
	return voices, nil
}

// GetCacheStats walks the cache and totals the mp3 files in it.
func (g *GoogleClassicTTSEngine) GetCacheStats() (CacheStats, error) {
	return cacheStats(g.cacheRootDir)
}

func cacheStats(root string) (CacheStats, error) {
	stats := CacheStats{Directory: root}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Continue walking despite errors
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".mp3") {
			stats.Files++
			stats.SizeBytes += info.Size()
		}
		return nil
	})

	return stats, err
}

// ClearCache removes all cached files
func (g *GoogleClassicTTSEngine) ClearCache() error {
	return os.RemoveAll(filepath.Join(g.cacheRootDir, engineDirName))
}

// ClearStoryCache removes cached audio for one story.
func (g *GoogleClassicTTSEngine) ClearStoryCache(id int) error {
	return os.RemoveAll(storyCacheDir(g.cacheRootDir, id, true))
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// splitIntoChunks splits text into pieces of at most limit bytes without
// cutting through a UTF-8 sequence.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	var b strings.Builder
	for _, r := range text {
		if b.Len()+utf8.RuneLen(r) > limit && b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
