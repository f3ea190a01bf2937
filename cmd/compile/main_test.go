package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dialogue-engine/pkg/artifact"
	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

func registry() dialogue.Registry {
	return dialogue.Registry{
		{Name: "Alice", ScriptPrefix: "alice", Format: "say <Alice> %s"},
	}
}

func TestCompileThenDecompile(t *testing.T) {
	settings := dialogue.ScriptSettings{Name: "intro", InitialSpan: 10, CharacterMultiplier: 4, MinimalSpan: 20, Increment: 1}

	var out, warn bytes.Buffer
	require.NoError(t, runCompile(&out, &warn, "Alice: Hello\nZed: ?\n", registry(), settings))
	assert.Contains(t, out.String(), "execute if score @s intro matches 10 run say <Alice> Hello\n")
	assert.Contains(t, warn.String(), "line 2: unknown_speaker")

	var decoded bytes.Buffer
	require.NoError(t, runDecompile(&decoded, out.String(), registry()))

	var script artifact.Script
	require.NoError(t, json.Unmarshal(decoded.Bytes(), &script))
	assert.Equal(t, "intro", script.Name)
	require.Len(t, script.Commands, 1)
	assert.Equal(t, "Hello", script.Commands[0].Content)
	assert.Equal(t, "Alice", script.Commands[0].UserName)
}

func TestCompile_RequiresName(t *testing.T) {
	var out, warn bytes.Buffer
	err := runCompile(&out, &warn, "Alice: Hi", registry(), dialogue.DefaultSettings())
	assert.Error(t, err)
	assert.Empty(t, out.String())
}

func TestDecompile_Invalid(t *testing.T) {
	var out bytes.Buffer
	err := runDecompile(&out, "say hi\n", registry())
	assert.ErrorIs(t, err, artifact.ErrNotEnoughLines)
}
