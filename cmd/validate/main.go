package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/pkg/artifact"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

const artifactExt = ".mcfunction"

func main() {
	speakersFile := flag.String("speakers", "", "speakers YAML used to attribute commands")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-speakers speakers.yaml] <artifact.mcfunction>...\n", os.Args[0])
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	var registry dialogue.Registry
	if *speakersFile != "" {
		r, err := config.LoadSpeakersFile(*speakersFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load speakers: %v\n", err)
			os.Exit(1)
		}
		registry = r
	}

	results, err := validateAll(context.Background(), flag.Args(), registry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation aborted: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for _, r := range results {
		fmt.Print(r.report())
		if r.err != nil {
			failed++
		}
	}

	if failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed validation\n", failed, len(results))
		os.Exit(1)
	}
	fmt.Println("All artifacts are valid!")
}

type result struct {
	filename string
	script   *artifact.Script
	err      error
}

func (r result) report() string {
	var b strings.Builder
	if r.err != nil {
		fmt.Fprintf(&b, "FAIL %s: %v\n", r.filename, r.err)
		return b.String()
	}

	fmt.Fprintf(&b, "ok   %s: script %q, %d commands, initial span %d\n",
		r.filename, r.script.Name, len(r.script.Commands), r.script.InitialSpan)
	for _, d := range r.script.Diagnostics {
		fmt.Fprintf(&b, "     line %d: %s: %s\n", d.Line, d.Kind, d.Text)
	}
	return b.String()
}

// validateAll parses every file concurrently. Per-file problems are kept in
// the results; only a cancelled context aborts the run.
func validateAll(ctx context.Context, filenames []string, registry dialogue.Registry) ([]result, error) {
	results := make([]result, len(filenames))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, filename := range filenames {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			script, err := validateFile(filename, registry)
			results[i] = result{filename: filename, script: script, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func validateFile(filename string, registry dialogue.Registry) (*artifact.Script, error) {
	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, artifactExt) {
		return nil, fmt.Errorf("artifact file must have %s extension: %s", artifactExt, baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	script, err := artifact.Parse(string(data), artifact.WithSpeakers(registry))
	if err != nil {
		var perr *artifact.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("line %d: %w", perr.Line, perr.Err)
		}
		return nil, err
	}
	return script, nil
}
