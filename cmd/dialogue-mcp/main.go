// dialogue-mcp exposes the dialogue codecs as an MCP stdio server.
//
// Environment variables:
//
//	SPEAKERS_FILE  speaker registry YAML (default: ./data/speakers.yaml)
//	SCRIPT_*       default script settings, as for the API
//
// Usage:
//
//	dialogue-mcp
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jwebster45206/dialogue-engine/internal/config"
	"github.com/jwebster45206/dialogue-engine/internal/logger"
	"github.com/jwebster45206/dialogue-engine/pkg/artifact"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logr := logger.SetupStderr(cfg)

	registry, err := config.LoadSpeakersFile(cfg.SpeakersFile)
	if err != nil {
		logr.Warn("Speakers file not loaded", "path", cfg.SpeakersFile, "error", err)
	}

	tools := &toolset{registry: registry, defaults: cfg.Script, logger: logr}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "dialogue-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_script",
		Description: "Parse an authored dialogue script (`Speaker: text` lines) into timed commands. Unknown speakers and stray lines are reported as diagnostics.",
	}, tools.parseScript)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_artifact",
		Description: "Parse a generated counter-gated artifact back into its script name, initial span and commands.",
	}, tools.parseArtifact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "build_artifact",
		Description: "Compile an authored dialogue script into a counter-gated artifact.",
	}, tools.buildArtifact)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("dialogue-mcp: %v", err)
	}
}

// --- Input types ---

type parseScriptInput struct {
	Text                string `json:"text"                           jsonschema:"Authored script text"`
	CharacterMultiplier int    `json:"character_multiplier,omitempty" jsonschema:"Span per word (default from SCRIPT_CHARACTER_MULTIPLIER)"`
	MinimalSpan         int    `json:"minimal_span,omitempty"         jsonschema:"Base span of every line (default from SCRIPT_MINIMAL_SPAN)"`
}

type parseArtifactInput struct {
	Text string `json:"text" jsonschema:"Artifact text, one statement per line"`
}

type buildArtifactInput struct {
	Text        string `json:"text"                   jsonschema:"Authored script text"`
	Name        string `json:"name"                   jsonschema:"Scoreboard objective driving the script"`
	InitialSpan int    `json:"initial_span,omitempty" jsonschema:"Wait before the first command (default from SCRIPT_INITIAL_SPAN)"`
}

// --- Handlers ---

type toolset struct {
	registry dialogue.Registry
	defaults dialogue.ScriptSettings
	logger   *slog.Logger
}

func (t *toolset) settings(multiplier, minimal int) dialogue.ScriptSettings {
	s := t.defaults.WithDefaults()
	if multiplier > 0 {
		s.CharacterMultiplier = multiplier
	}
	if minimal > 0 {
		s.MinimalSpan = minimal
	}
	return s
}

func (t *toolset) parseScript(ctx context.Context, req *mcp.CallToolRequest, input parseScriptInput) (*mcp.CallToolResult, any, error) {
	s := t.settings(input.CharacterMultiplier, input.MinimalSpan)
	commands, diags := dialogue.ParseAuthoredScript(input.Text, t.registry, s.CharacterMultiplier, s.MinimalSpan)
	t.logger.Debug("parse_script", "commands", len(commands), "diagnostics", len(diags))
	return textResult(jsonString(map[string]any{
		"commands":    nonNil(commands),
		"diagnostics": nonNil(diags),
	})), nil, nil
}

func (t *toolset) parseArtifact(ctx context.Context, req *mcp.CallToolRequest, input parseArtifactInput) (*mcp.CallToolResult, any, error) {
	script, err := artifact.Parse(input.Text, artifact.WithSpeakers(t.registry))
	if err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(jsonString(script)), nil, nil
}

func (t *toolset) buildArtifact(ctx context.Context, req *mcp.CallToolRequest, input buildArtifactInput) (*mcp.CallToolResult, any, error) {
	s := t.settings(0, 0)
	s.Name = input.Name
	if input.InitialSpan > 0 {
		s.InitialSpan = input.InitialSpan
	}
	if err := s.Validate(); err != nil {
		return errorResult(err), nil, nil
	}

	commands, diags := dialogue.ParseAuthoredScript(input.Text, t.registry, s.CharacterMultiplier, s.MinimalSpan)
	return textResult(jsonString(map[string]any{
		"artifact":    artifact.Build(commands, s),
		"duration":    s.InitialSpan + artifact.Duration(commands),
		"diagnostics": nonNil(diags),
	})), nil, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	res := textResult(fmt.Sprintf("error: %v", err))
	res.IsError = true
	return res
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}
