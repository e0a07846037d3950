package shelf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"shortshelf/internal/cli/scheme/colours"
	"shortshelf/internal/config"
	"shortshelf/internal/domain/library"
	"shortshelf/internal/domain/library/illustration"
	"shortshelf/internal/domain/story"
	"shortshelf/internal/story/tts"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// EngineFactory builds the read-aloud engine on first use.
type EngineFactory func(config tts.Config, out io.Writer) (tts.Engine, error)

// Options wires a Shelf to its collaborators. Zero values get sensible
// defaults: stdout, stdin, tts.NewEngine and a time-seeded random source.
type Options struct {
	Library   *library.Library
	Images    *illustration.Finder
	Settings  config.Settings
	Out       io.Writer
	In        io.Reader
	NewEngine EngineFactory
	Rand      *rand.Rand
}

// Shelf is the terminal front end of the story library.
type Shelf struct {
	lib      *library.Library
	images   *illustration.Finder
	settings config.Settings
	out      io.Writer
	in       *bufio.Reader
	rand     *rand.Rand

	newEngine EngineFactory
	engineMu  sync.Mutex
	engine    tts.Engine

	unsubscribe func()
	ctx         context.Context
	Cancel      context.CancelFunc
}

func New(opts Options) *Shelf {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.NewEngine == nil {
		opts.NewEngine = tts.NewEngine
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Shelf{
		lib:       opts.Library,
		images:    opts.Images,
		settings:  opts.Settings,
		out:       opts.Out,
		in:        bufio.NewReader(opts.In),
		rand:      opts.Rand,
		newEngine: opts.NewEngine,
		ctx:       ctx,
		Cancel:    cancel,
	}
	s.unsubscribe = s.lib.Subscribe(s.favoriteChanged)

	return s
}

// Close stops playback and detaches from the library.
func (s *Shelf) Close() {
	s.Cancel()
	s.unsubscribe()

	s.engineMu.Lock()
	defer s.engineMu.Unlock()
	if s.engine != nil {
		if err := s.engine.Stop(); err != nil {
			logrus.WithError(err).Debug("Failed to stop TTS engine")
		}
	}
}

func (s *Shelf) favoriteChanged(c library.Change) {
	title := story.PlaceholderTitle(c.StoryID)
	if item, ok := s.lib.Story(c.StoryID); ok {
		title = item.Title
	}

	if c.Favorite {
		colours.Heart.Fprintf(s.out, "♥ ")
		colours.Success.Fprintf(s.out, "Added \"%s\" to favorites\n", title)
	} else {
		colours.Muted.Fprintf(s.out, "♡ ")
		colours.Info.Fprintf(s.out, "Removed \"%s\" from favorites\n", title)
	}
}

func (s *Shelf) ShowWelcome(cmd *cobra.Command, args []string) {
	fmt.Fprintln(s.out)
	colours.Title.Fprintln(s.out, "📚 Welcome to shortshelf 📚")
	fmt.Fprintln(s.out)
	colours.Info.Fprintf(s.out, "%d stories on the shelf, %d favorites\n", s.lib.Len(), len(s.lib.Favorites()))
	fmt.Fprintln(s.out)
	colours.Info.Fprintln(s.out, "Available commands:")
	fmt.Fprintln(s.out, "  • shortshelf list        - Browse the collection")
	fmt.Fprintln(s.out, "  • shortshelf favorites   - Show your favorite stories")
	fmt.Fprintln(s.out, "  • shortshelf read [id]   - Read a story")
	fmt.Fprintln(s.out, "  • shortshelf random      - Read a random story")
	fmt.Fprintln(s.out, "  • shortshelf fav <id>    - Toggle a favorite")
	fmt.Fprintln(s.out, "  • shortshelf image <id>  - Show a story's illustration")
	fmt.Fprintln(s.out, "  • shortshelf settings    - Show settings and diagnostics")
}

func (s *Shelf) ListStories(cmd *cobra.Command, args []string) {
	fmt.Fprintln(s.out)
	colours.Title.Fprintln(s.out, "📚 Stories 📚")
	fmt.Fprintln(s.out)

	stories := s.lib.Stories()
	if len(stories) == 0 {
		colours.Warning.Fprintln(s.out, "🔍 No stories found.")
		return
	}

	s.printList(stories, s.previewLength(cmd))
	colours.Success.Fprintf(s.out, "✨ %d stories ✨\n", len(stories))
}

func (s *Shelf) ListFavorites(cmd *cobra.Command, args []string) {
	fmt.Fprintln(s.out)
	colours.Title.Fprintln(s.out, "♥ Favorites ♥")
	fmt.Fprintln(s.out)

	stories := s.lib.Favorites()
	if len(stories) == 0 {
		colours.Warning.Fprintln(s.out, "No favorites yet. Mark one with 'shortshelf fav <id>'.")
		return
	}

	s.printList(stories, s.previewLength(cmd))
	colours.Success.Fprintf(s.out, "✨ %d favorites ✨\n", len(stories))
}

func (s *Shelf) previewLength(cmd *cobra.Command) int {
	if cmd != nil {
		if f := cmd.Flags().Lookup("preview"); f != nil && f.Changed {
			if n, err := cmd.Flags().GetInt("preview"); err == nil {
				return n
			}
		}
	}
	return s.settings.Preview
}

func (s *Shelf) printList(stories []story.Item, preview int) {
	for _, item := range stories {
		fmt.Fprintf(s.out, "  %03d. ", item.ID)
		colours.Title.Fprintf(s.out, "%s", item.Title)
		if item.Favorite {
			colours.Heart.Fprintf(s.out, " ♥")
		}
		fmt.Fprintln(s.out)
		if preview > 0 {
			colours.Muted.Fprintf(s.out, "       %s\n", oneLine(item.Preview(preview)))
		}
		fmt.Fprintln(s.out)
	}
}

func oneLine(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

func (s *Shelf) ReadStory(cmd *cobra.Command, args []string) {
	if len(args) == 0 {
		s.interactiveStorySelection(cmd)
		return
	}

	id, ok := s.parseID(args[0])
	if !ok {
		return
	}

	item, found := s.lib.Story(id)
	if !found {
		colours.Error.Fprintf(s.out, "❌ Story %s not found!\n", args[0])
		return
	}

	s.displayStory(cmd, item)
}

func (s *Shelf) ReadRandomStory(cmd *cobra.Command, args []string) {
	item, ok := s.lib.Random(s.rand)
	if !ok {
		colours.Error.Fprintln(s.out, "❌ No stories available!")
		return
	}

	fmt.Fprintln(s.out)
	colours.Prompt.Fprintln(s.out, "🎲 Random Story Selection! 🎲")

	s.displayStory(cmd, item)
}

func (s *Shelf) interactiveStorySelection(cmd *cobra.Command) {
	stories := s.lib.Stories()
	if len(stories) == 0 {
		colours.Error.Fprintln(s.out, "❌ No stories available!")
		return
	}

	fmt.Fprintln(s.out)
	colours.Title.Fprintln(s.out, "📚 Choose a story 📚")
	fmt.Fprintln(s.out)

	for i, item := range stories {
		fmt.Fprintf(s.out, "%d. ", i+1)
		colours.Title.Fprintf(s.out, "%s", item.Title)
		if item.Favorite {
			colours.Heart.Fprintf(s.out, " ♥")
		}
		fmt.Fprintln(s.out)
	}

	fmt.Fprintln(s.out)
	colours.Prompt.Fprint(s.out, "Enter the number of your chosen story (or 'q' to quit): ")

	input, _ := s.in.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" || input == "q" || input == "quit" {
		colours.Warning.Fprintln(s.out, "👋 Maybe next time!")
		return
	}

	choice, err := strconv.Atoi(input)
	if err != nil || choice < 1 || choice > len(stories) {
		colours.Error.Fprintln(s.out, "❌ Invalid selection! Please try again.")
		return
	}

	s.displayStory(cmd, stories[choice-1])
}

func (s *Shelf) displayStory(cmd *cobra.Command, item story.Item) {
	fmt.Fprintln(s.out)
	colours.Title.Fprintf(s.out, "📖 %s", item.Title)
	if item.Favorite {
		colours.Heart.Fprintf(s.out, " ♥")
	}
	fmt.Fprintln(s.out)
	colours.Muted.Fprintf(s.out, "Story %03d · illustration %s\n", item.ID, s.lib.ImageKeyFor(item.ID))
	fmt.Fprintln(s.out)
	colours.Body.Fprintln(s.out, item.Content)
	fmt.Fprintln(s.out)

	aloud, refresh, voice := false, false, ""
	if cmd != nil {
		aloud, _ = cmd.Flags().GetBool("aloud")
		refresh, _ = cmd.Flags().GetBool("refresh")
		voice, _ = cmd.Flags().GetString("voice")
	}
	if aloud {
		s.readAloud(item, voice, refresh)
	}
}

func (s *Shelf) readAloud(item story.Item, voice string, refresh bool) {
	engine, err := s.ttsEngine()
	if err != nil {
		colours.Error.Fprintf(s.out, "❌ Read aloud unavailable: %v\n", err)
		return
	}

	if refresh {
		if cacheable, ok := engine.(tts.CacheableEngine); ok {
			if err := cacheable.ClearStoryCache(item.ID); err != nil {
				colours.Warning.Fprintf(s.out, "⚠️  Could not clear cached audio: %v\n", err)
			} else {
				colours.Info.Fprintf(s.out, "🧹 Cleared cached audio for story %03d\n", item.ID)
			}
		}
	}

	if voice != "" {
		if err := engine.SetVoice(voice); err != nil {
			colours.Warning.Fprintf(s.out, "⚠️  Voice %q not available: %v\n", voice, err)
		}
	}
	if aware, ok := engine.(tts.StoryAwareEngine); ok {
		aware.SetStory(item.ID)
	}

	colours.Success.Fprintln(s.out, "🎵 Starting playback... 🎵")
	if err := engine.Speak(item.Content); err != nil {
		colours.Error.Fprintf(s.out, "❌ TTS Error: %v\n", err)
		return
	}

	s.waitForUserInput(engine)
}

func (s *Shelf) waitForUserInput(engine tts.Engine) {
	paused := false
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		fmt.Fprint(s.out, "\n⏸️  Press 'p' to pause/resume, 's' to stop, or Enter to continue: ")
		input, err := s.in.ReadString('\n')
		if err != nil && input == "" {
			engine.Stop()
			return
		}

		switch strings.TrimSpace(strings.ToLower(input)) {
		case "p", "pause":
			if paused {
				engine.Resume()
				colours.Success.Fprintln(s.out, "▶️  Resumed")
			} else {
				engine.Pause()
				colours.Warning.Fprintln(s.out, "⏸️  Paused")
			}
			paused = !paused
		case "s", "stop":
			engine.Stop()
			colours.Warning.Fprintln(s.out, "⏹️  Stopped")
			return
		case "":
			if !paused && !engine.IsPlaying() {
				colours.Success.Fprintln(s.out, "✅ Story finished!")
				return
			}
		default:
			colours.Info.Fprintln(s.out, "ℹ️  Use 'p' for pause/resume, 's' to stop")
		}
	}
}

func (s *Shelf) ttsEngine() (tts.Engine, error) {
	s.engineMu.Lock()
	defer s.engineMu.Unlock()

	if s.engine != nil {
		return s.engine, nil
	}

	engine, err := s.newEngine(s.ttsConfig(), s.out)
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return engine, nil
}

func (s *Shelf) ttsConfig() tts.Config {
	return tts.Config{
		Type:      s.settings.TTS.Type,
		Voice:     s.settings.TTS.Voice,
		Speed:     s.settings.TTS.Speed,
		Volume:    s.settings.TTS.Volume,
		CachePath: s.settings.TTS.CachePath,
	}
}

// ToggleFavorite flips every id given. The observer registered in New
// reports each change.
func (s *Shelf) ToggleFavorite(cmd *cobra.Command, args []string) {
	for _, arg := range args {
		id, ok := s.parseID(arg)
		if !ok {
			continue
		}

		if _, known := s.lib.Story(id); !known {
			colours.Warning.Fprintf(s.out, "⚠️  No story %03d on the shelf; marking it anyway\n", id)
		}

		if _, err := s.lib.ToggleFavorite(s.ctx, id); err != nil {
			colours.Warning.Fprintf(s.out, "⚠️  Favorite changed for this session only: %v\n", err)
		}
	}
}

func (s *Shelf) ShowImage(cmd *cobra.Command, args []string) {
	id, ok := s.parseID(args[0])
	if !ok {
		return
	}

	key := s.lib.ImageKeyFor(id)
	colours.Info.Fprintf(s.out, "🖼️  Story %03d uses illustration %s\n", id, key)

	if s.images == nil {
		colours.Muted.Fprintln(s.out, "No illustration directory configured")
		return
	}

	data, err := s.images.Lookup(key)
	switch {
	case err == nil:
		colours.Success.Fprintf(s.out, "📁 %s (%d bytes)\n", s.images.Path(key), len(data))
	case errors.Is(err, illustration.ErrNotFound):
		colours.Warning.Fprintf(s.out, "No file at %s\n", s.images.Path(key))
	default:
		colours.Error.Fprintf(s.out, "❌ %v\n", err)
	}
}

func (s *Shelf) ConfigureSettings(cmd *cobra.Command, args []string) {
	fmt.Fprintln(s.out)
	colours.Title.Fprintln(s.out, "⚙️ Settings ⚙️")
	fmt.Fprintln(s.out)

	stories := s.settings.StoriesDir
	if stories == "" {
		stories = "(bundled)"
	}

	colours.Prompt.Fprintln(s.out, "📚 Library:")
	fmt.Fprintf(s.out, "  • Stories: %s (*%s)\n", stories, s.settings.StoriesExt)
	fmt.Fprintf(s.out, "  • Favorites: %s at %s\n", s.settings.FavoritesBackend, s.settings.FavoritesPath)
	fmt.Fprintf(s.out, "  • Theme: %s, preview %d characters\n", s.settings.Theme, s.settings.Preview)
	fmt.Fprintln(s.out)

	colours.Prompt.Fprintln(s.out, "🎤 Voice Settings:")
	fmt.Fprintf(s.out, "  • Engine: %s (platform %s)\n", s.settings.TTS.Type, tts.Platform())
	fmt.Fprintf(s.out, "  • Voice: %s\n", s.settings.TTS.Voice)
	fmt.Fprintf(s.out, "  • Speed: %.1fx\n", s.settings.TTS.Speed)
	fmt.Fprintf(s.out, "  • Volume: %.0f%%\n", s.settings.TTS.Volume*100)

	available := make([]string, 0)
	for _, e := range tts.GetAvailableEngines() {
		available = append(available, e.String())
	}
	fmt.Fprintf(s.out, "  • Available engines: %s\n", strings.Join(available, ", "))

	clearCache := false
	if cmd != nil {
		clearCache, _ = cmd.Flags().GetBool("clear-cache")
	}
	if clearCache {
		s.clearAudioCache()
	}

	s.engineMu.Lock()
	engine := s.engine
	s.engineMu.Unlock()
	if cacheable, ok := engine.(tts.CacheableEngine); ok {
		if stats, err := cacheable.GetCacheStats(); err == nil {
			fmt.Fprintf(s.out, "  • Audio cache: %d files, %.1f MB in %s\n", stats.Files, stats.SizeMB(), stats.Directory)
		}
	}
	fmt.Fprintln(s.out)

	diagnostics := s.lib.Diagnostics()
	if len(diagnostics) == 0 {
		colours.Success.Fprintln(s.out, "✅ All stories loaded cleanly")
		return
	}

	colours.Warning.Fprintf(s.out, "⚠️  %d problems while loading:\n", len(diagnostics))
	for _, d := range diagnostics {
		fmt.Fprintf(s.out, "  • %s\n", d)
	}
}

func (s *Shelf) clearAudioCache() {
	engine, err := s.ttsEngine()
	if err != nil {
		colours.Error.Fprintf(s.out, "❌ Read aloud unavailable: %v\n", err)
		return
	}

	cacheable, ok := engine.(tts.CacheableEngine)
	if !ok {
		colours.Info.Fprintf(s.out, "  • Engine %s keeps no audio cache\n", s.settings.TTS.Type)
		return
	}

	if err := cacheable.ClearCache(); err != nil {
		colours.Error.Fprintf(s.out, "❌ Failed to clear audio cache: %v\n", err)
		return
	}
	colours.Success.Fprintln(s.out, "  • 🧹 Audio cache cleared")
}

func (s *Shelf) parseID(arg string) (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		colours.Error.Fprintf(s.out, "❌ '%s' is not a story id\n", arg)
		return 0, false
	}
	return id, true
}

// AddCommands registers the shelf's commands on root. The shelf is resolved
// when a command runs, after flags and config have been read.
func AddCommands(root *cobra.Command, app func() *Shelf) {
	run := func(method func(*Shelf, *cobra.Command, []string)) func(*cobra.Command, []string) {
		return func(cmd *cobra.Command, args []string) {
			method(app(), cmd, args)
		}
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List all stories",
		Long:  "Display every story on the shelf in collection order",
		Args:  cobra.NoArgs,
		Run:   run((*Shelf).ListStories),
	}

	favoritesCmd := &cobra.Command{
		Use:     "favorites",
		Aliases: []string{"favs"},
		Short:   "♥ List favorite stories",
		Args:    cobra.NoArgs,
		Run:     run((*Shelf).ListFavorites),
	}

	readCmd := &cobra.Command{
		Use:   "read [story-id]",
		Short: "📖 Read a specific story",
		Long:  "Read a story by its id or choose one from a list",
		Args:  cobra.MaximumNArgs(1),
		Run:   run((*Shelf).ReadStory),
	}

	randomCmd := &cobra.Command{
		Use:   "random",
		Short: "🎲 Read a random story",
		Args:  cobra.NoArgs,
		Run:   run((*Shelf).ReadRandomStory),
	}

	favCmd := &cobra.Command{
		Use:   "fav <story-id>...",
		Short: "♥ Toggle favorite stories",
		Long:  "Mark a story as favorite, or unmark it if it already is one",
		Args:  cobra.MinimumNArgs(1),
		Run:   run((*Shelf).ToggleFavorite),
	}

	imageCmd := &cobra.Command{
		Use:   "image <story-id>",
		Short: "🖼️ Show a story's illustration",
		Args:  cobra.ExactArgs(1),
		Run:   run((*Shelf).ShowImage),
	}

	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show settings and load problems",
		Args:  cobra.NoArgs,
		Run:   run((*Shelf).ConfigureSettings),
	}

	for _, c := range []*cobra.Command{listCmd, favoritesCmd} {
		c.Flags().IntP("preview", "p", 0, "Preview length in characters (0 hides previews)")
	}
	for _, c := range []*cobra.Command{readCmd, randomCmd} {
		c.Flags().BoolP("aloud", "a", false, "Read the story aloud")
		c.Flags().StringP("voice", "v", "", "Optional voice to use for reading")
		c.Flags().Bool("refresh", false, "Drop the story's cached audio before reading aloud")
	}
	settingsCmd.Flags().Bool("clear-cache", false, "Delete all cached read-aloud audio")

	root.AddCommand(listCmd, favoritesCmd, readCmd, randomCmd, favCmd, imageCmd, settingsCmd)
}
