package tts

type Config struct {
	Type      string
	Speed     float64
	Volume    float64
	Voice     string
	CachePath string
}

// Engine reads text aloud.
type Engine interface {
	Speak(text string) error
	SetVoice(voice string) error
	SetSpeed(speed float64) error
	SetVolume(volume float64) error
	Stop() error
	Pause() error
	Resume() error
	IsPlaying() bool
	GetAvailableVoices() ([]string, error)
}

// StoryAwareEngine caches audio per story.
type StoryAwareEngine interface {
	Engine
	// SetStory must be called before Speak so cached audio lands under the
	// story's own directory.
	SetStory(id int)
}

// CacheableEngine extends Engine with cache management capabilities
type CacheableEngine interface {
	Engine
	GetCacheStats() (CacheStats, error)
	ClearCache() error
	ClearStoryCache(id int) error
}

// CacheStats summarises an engine's audio cache.
type CacheStats struct {
	Directory string
	Files     int64
	SizeBytes int64
}

// SizeMB returns the cache size in megabytes.
func (c CacheStats) SizeMB() float64 {
	return float64(c.SizeBytes) / (1024 * 1024)
}
