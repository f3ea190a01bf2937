package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/pkg/artifact"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

func main() {
	var (
		speakersFile = flag.String("speakers", "./data/speakers.yaml", "speakers YAML file")
		decompile    = flag.Bool("decompile", false, "parse an artifact and print its commands as JSON")
		output       = flag.String("o", "", "output file (default stdout)")
		settings     = dialogue.DefaultSettings()
	)
	flag.StringVar(&settings.Name, "name", "", "scoreboard objective of the script (required to compile)")
	flag.IntVar(&settings.InitialSpan, "initial-span", settings.InitialSpan, "wait before the first command")
	flag.IntVar(&settings.CharacterMultiplier, "multiplier", settings.CharacterMultiplier, "span per word")
	flag.IntVar(&settings.MinimalSpan, "minimal-span", settings.MinimalSpan, "base span of every line")
	flag.IntVar(&settings.Increment, "increment", settings.Increment, "counter increment per tick")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <script.txt | artifact.mcfunction>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	registry, err := config.LoadSpeakersFile(*speakersFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load speakers: %v\n", err)
		os.Exit(1)
	}

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read input: %v\n", err)
		os.Exit(1)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriter(out)
	if *decompile {
		err = runDecompile(w, string(data), registry)
	} else {
		err = runCompile(w, os.Stderr, string(data), registry, settings)
	}
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// runCompile writes the artifact of an authored script. Diagnostics go to
// warn and do not fail the run.
func runCompile(w, warn io.Writer, text string, registry dialogue.Registry, settings dialogue.ScriptSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	commands, diags := dialogue.ParseAuthoredScript(text, registry, settings.CharacterMultiplier, settings.MinimalSpan)
	for _, d := range diags {
		fmt.Fprintf(warn, "line %d: %s: %s\n", d.Line, d.Kind, d.Text)
	}
	return artifact.BuildTo(w, commands, settings)
}

// runDecompile writes the parsed form of an artifact as indented JSON.
func runDecompile(w io.Writer, text string, registry dialogue.Registry) error {
	script, err := artifact.Parse(text, artifact.WithSpeakers(registry))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(script)
}
