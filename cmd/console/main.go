package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
	"github.com/jwebster45206/dialogue-engine/pkg/playback"
)

type ConsoleConfig struct {
	APIBaseURL   string
	Timeout      time.Duration
	ScriptFile   string
	SpeakersFile string
	Settings     dialogue.ScriptSettings
	Unit         time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:    30 * time.Second,
		Settings:   dialogue.DefaultSettings(),
	}
	flag.StringVar(&cfg.SpeakersFile, "speakers", getEnv("SPEAKERS_FILE", ""), "speakers YAML (default: fetch from the API)")
	flag.StringVar(&cfg.Settings.Name, "name", "", "scoreboard objective of the script")
	flag.IntVar(&cfg.Settings.InitialSpan, "initial-span", cfg.Settings.InitialSpan, "wait before the first command")
	flag.IntVar(&cfg.Settings.CharacterMultiplier, "multiplier", cfg.Settings.CharacterMultiplier, "span per word")
	flag.IntVar(&cfg.Settings.MinimalSpan, "minimal-span", cfg.Settings.MinimalSpan, "base span of every line")
	flag.DurationVar(&cfg.Unit, "unit", playback.DefaultUnit, "wall time per span unit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <script.txt>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	cfg.ScriptFile = flag.Arg(0)

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	registry, err := loadRegistry(cfg, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load speakers: %v\n", err)
		os.Exit(1)
	}

	text, err := os.ReadFile(cfg.ScriptFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read script: %v\n", err)
		os.Exit(1)
	}
	commands, diags := dialogue.ParseAuthoredScript(string(text), registry, cfg.Settings.CharacterMultiplier, cfg.Settings.MinimalSpan)

	player := playback.NewPlayer(playback.WithUnit(cfg.Unit))
	ui := NewConsoleUI(cfg, client, player, commands, diags)

	p := tea.NewProgram(ui,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
	player.Stop()
}

// loadRegistry reads the speakers file when one is given and falls back to
// the registry stored by the API.
func loadRegistry(cfg *ConsoleConfig, client *http.Client) (dialogue.Registry, error) {
	if cfg.SpeakersFile != "" {
		return config.LoadSpeakersFile(cfg.SpeakersFile)
	}
	if !testConnection(client, cfg.APIBaseURL) {
		return nil, fmt.Errorf("no -speakers file given and could not connect to API at %s", cfg.APIBaseURL)
	}
	return fetchSpeakers(client, cfg.APIBaseURL)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
