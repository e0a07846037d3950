package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Favorite backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Settings is the resolved configuration.
type Settings struct {
	StoriesDir string
	StoriesExt string

	FavoritesBackend string
	FavoritesPath    string

	Theme   string
	Preview int

	TTS TTS

	LogLevel  string
	LogFormat string
}

// TTS holds read-aloud settings.
type TTS struct {
	Type      string
	Voice     string
	Speed     float64
	Volume    float64
	CachePath string
}

// SetDefaults registers default values on the global viper instance.
func SetDefaults() {
	viper.SetDefault("stories.dir", "") // empty means the embedded bundle
	viper.SetDefault("stories.ext", ".txt")

	viper.SetDefault("favorites.backend", BackendJSON)
	viper.SetDefault("favorites.path", "")

	viper.SetDefault("ui.theme", "light")
	viper.SetDefault("ui.preview", 100)

	viper.SetDefault("tts.type", "auto") // Auto-select best engine
	viper.SetDefault("tts.voice", "default")
	viper.SetDefault("tts.speed", 1.0)
	viper.SetDefault("tts.volume", 0.8)
	viper.SetDefault("tts.cache_path", filepath.Join(HomeDir(), "tts"))

	viper.SetDefault("log.level", "warn")
	viper.SetDefault("log.format", "text")
}

// Init points viper at the config file (or the usual search paths) and the
// SHORTSHELF_ environment. A missing config file is not an error.
func Init(file string) error {
	SetDefaults()

	viper.SetEnvPrefix("shortshelf")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if file != "" {
		viper.SetConfigFile(file)
	} else {
		viper.SetConfigName("shortshelf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("$HOME/.shortshelf")
		viper.AddConfigPath(".")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	logrus.WithField("file", viper.ConfigFileUsed()).Debug("Loaded config")
	return nil
}

// Current reads the settings from viper.
func Current() Settings {
	s := Settings{
		StoriesDir:       viper.GetString("stories.dir"),
		StoriesExt:       viper.GetString("stories.ext"),
		FavoritesBackend: strings.ToLower(viper.GetString("favorites.backend")),
		FavoritesPath:    viper.GetString("favorites.path"),
		Theme:            strings.ToLower(viper.GetString("ui.theme")),
		Preview:          viper.GetInt("ui.preview"),
		TTS: TTS{
			Type:      viper.GetString("tts.type"),
			Voice:     viper.GetString("tts.voice"),
			Speed:     viper.GetFloat64("tts.speed"),
			Volume:    viper.GetFloat64("tts.volume"),
			CachePath: viper.GetString("tts.cache_path"),
		},
		LogLevel:  viper.GetString("log.level"),
		LogFormat: viper.GetString("log.format"),
	}

	if s.FavoritesPath == "" {
		s.FavoritesPath = DefaultFavoritesPath(s.FavoritesBackend)
	}

	return s
}

// Validate rejects settings the app cannot run with.
func (s Settings) Validate() error {
	switch s.FavoritesBackend {
	case BackendJSON, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown favorites backend %q", s.FavoritesBackend)
	}

	switch s.Theme {
	case "light", "dark":
	default:
		return fmt.Errorf("unknown theme %q", s.Theme)
	}

	if s.Preview < 0 {
		return fmt.Errorf("preview length must not be negative")
	}

	return nil
}

// HomeDir is where shortshelf keeps its files.
func HomeDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".shortshelf")
	}
	return ".shortshelf"
}

// DefaultFavoritesPath returns the favorites file for a backend.
func DefaultFavoritesPath(backend string) string {
	if backend == BackendSQLite {
		return filepath.Join(HomeDir(), "favorites.db")
	}
	return filepath.Join(HomeDir(), "favorites.json")
}

// SetupLogging applies the log level and format to the global logrus logger.
func SetupLogging(s Settings) error {
	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logrus.SetLevel(level)

	switch s.LogFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unknown log format %q", s.LogFormat)
	}

	return nil
}
