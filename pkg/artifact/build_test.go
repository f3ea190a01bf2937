package artifact

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

func TestBuild(t *testing.T) {
	registry := speakers()
	alice, _ := registry.ByName("Alice")
	bob, _ := registry.ByName("Bob")

	commands := []dialogue.Command{
		dialogue.NewCommand(alice, 20, "Hi"),
		dialogue.NewCustomCommand("give @p minecraft:bread 1"),
		dialogue.NewCommand(bob, 28, "Hello there"),
	}
	settings := dialogue.ScriptSettings{Name: "meet", InitialSpan: 10, Increment: 1}

	expected := lines(
		"scoreboard players add @s meet 1",
		`execute if score @s meet matches 10 run tellraw @a {"text":"<Alice> Hi"}`,
		"give @p minecraft:bread 1",
		`execute if score @s meet matches 30 run tellraw @a {"text":"<Bob> Hello there"}`,
		"execute if score @s meet matches 58.. run scoreboard players set @s meet -1",
	)
	assert.Equal(t, expected, Build(commands, settings))
}

func TestBuild_Empty(t *testing.T) {
	got := Build(nil, dialogue.ScriptSettings{Name: "x", InitialSpan: 5})
	expected := lines(
		"scoreboard players add @s x 1",
		"execute if score @s x matches 5.. run scoreboard players set @s x -1",
	)
	assert.Equal(t, expected, got)
}

func TestBuild_CustomIdempotence(t *testing.T) {
	commands := []dialogue.Command{
		dialogue.NewCommand(nil, 12, "say a"),
		dialogue.NewCustomCommand("function my:thing"),
	}
	settings := dialogue.ScriptSettings{Name: "s", InitialSpan: 3, Increment: 2}

	first := Build(commands, settings)
	script, err := Parse(first)
	require.NoError(t, err)
	second := Build(script.Commands, script.Settings())
	assert.Equal(t, first, second)

	third, err := Parse(second)
	require.NoError(t, err)
	assert.Equal(t, script.Commands[1].Content, third.Commands[1].Content)
	assert.True(t, third.Commands[1].IsCustom)
}

func TestDuration(t *testing.T) {
	commands := []dialogue.Command{
		dialogue.NewCommand(nil, 12, "a"),
		dialogue.NewCustomCommand("b"),
		dialogue.NewCommand(nil, 8, "c"),
	}
	assert.Equal(t, 20, Duration(commands))
	assert.Equal(t, 0, Duration(nil))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestBuildTo(t *testing.T) {
	var buf bytes.Buffer
	err := BuildTo(&buf, []dialogue.Command{dialogue.NewCommand(nil, 4, "say hi")}, dialogue.ScriptSettings{Name: "t"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "execute if score @s t matches 0 run say hi\n")

	err = BuildTo(failingWriter{}, nil, dialogue.ScriptSettings{Name: "t"})
	assert.Error(t, err)
}

func TestBuildTo_InvalidSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings dialogue.ScriptSettings
	}{
		{"empty name", dialogue.ScriptSettings{}},
		{"blank name", dialogue.ScriptSettings{Name: "  "}},
		{"name with space", dialogue.ScriptSettings{Name: "a b"}},
		{"negative initial span", dialogue.ScriptSettings{Name: "t", InitialSpan: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := BuildTo(&buf, []dialogue.Command{dialogue.NewCommand(nil, 4, "say hi")}, tt.settings)
			assert.ErrorContains(t, err, "invalid settings")
			assert.Empty(t, buf.String())
			assert.Empty(t, Build(nil, tt.settings))
		})
	}
}
