package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"shortshelf/internal/cli/scheme/colours"
	"shortshelf/internal/cli/scheme/theme"
	"shortshelf/internal/config"
	"shortshelf/internal/domain/library"
	"shortshelf/internal/story/shelf"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	var (
		configFile string
		session    shelf.Session
	)

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		if err := session.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close favorites store")
		}
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye!"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "shortshelf",
		Short: "📚 A small shelf of short stories",
		Long: `
┌─────────────────────────────────────┐
│  📚 shortshelf                      │
│  A small shelf of short stories     │
└─────────────────────────────────────┘

Browse a bundled collection of short texts, keep your favorites
and read one at random when you cannot choose.
		`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(configFile); err != nil {
				return err
			}

			settings := config.Current()
			if err := settings.Validate(); err != nil {
				return err
			}
			if err := config.SetupLogging(settings); err != nil {
				return err
			}
			colours.Apply(theme.ByName(settings.Theme))

			favoritesStore, closer, err := shelf.OpenStore(settings)
			if err != nil {
				return fmt.Errorf("failed to open favorites: %w", err)
			}

			src, images := shelf.OpenSource(settings)
			lib := library.New(context.Background(), src, favoritesStore)

			app := shelf.New(shelf.Options{
				Library:  lib,
				Images:   images,
				Settings: settings,
			})
			return session.Set(app, closer)
		},
		Run: func(cmd *cobra.Command, args []string) {
			session.App().ShowWelcome(cmd, args)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default $HOME/.shortshelf/shortshelf.yaml)")
	flags.String("stories", "", "Directory of story files (default: bundled stories)")
	flags.String("favorites-backend", "", "Favorites backend: json, sqlite or memory")
	flags.String("theme", "", "Colour theme: light or dark")
	flags.String("log-level", "", "Log level")

	for key, flag := range map[string]string{
		"stories.dir":       "stories",
		"favorites.backend": "favorites-backend",
		"ui.theme":          "theme",
		"log.level":         "log-level",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			logrus.WithError(err).Fatal("failed to bind flag")
		}
	}

	shelf.AddCommands(rootCmd, session.App)

	err := rootCmd.Execute()

	if cerr := session.Close(); cerr != nil {
		logrus.WithError(cerr).Warn("Failed to close favorites store")
	}

	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}
