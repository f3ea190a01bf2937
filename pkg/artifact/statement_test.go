package artifact

import (
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected Statement
	}{
		{
			name:     "initial line",
			line:     "scoreboard players add @s intro 1",
			expected: Statement{Kind: KindInitial, Target: "@s", Name: "intro", Counter: 1},
		},
		{
			name: "command line",
			line: `execute if score @s intro matches 30 run tellraw @a {"text":"<Bob> hi there"}`,
			expected: Statement{
				Kind:    KindCommand,
				Target:  "@s",
				Name:    "intro",
				Counter: 30,
				Payload: `tellraw @a {"text":"<Bob> hi there"}`,
			},
		},
		{
			name:     "command payload keeps extra spaces",
			line:     "execute if score @p intro matches 5 run  say  hi ",
			expected: Statement{Kind: KindCommand, Target: "@p", Name: "intro", Counter: 5, Payload: " say  hi "},
		},
		{
			name: "final line",
			line: "execute if score @s intro matches 120.. run scoreboard players set @s intro -1",
			expected: Statement{
				Kind:        KindFinal,
				Target:      "@s",
				Name:        "intro",
				Counter:     120,
				ResetTarget: "@s",
				ResetName:   "intro",
			},
		},
		{
			name:     "initial line with non numeric increment",
			line:     "scoreboard players add @s intro one",
			expected: Statement{},
		},
		{
			name:     "initial line with trailing text",
			line:     "scoreboard players add @s intro 1 extra",
			expected: Statement{},
		},
		{
			name:     "initial line for another holder",
			line:     "scoreboard players add @p intro 1",
			expected: Statement{},
		},
		{
			name:     "command without payload",
			line:     "execute if score @s intro matches 5 run ",
			expected: Statement{},
		},
		{
			name:     "range threshold on a command is not a command",
			line:     "execute if score @s intro matches 5.. run say hi",
			expected: Statement{},
		},
		{
			name:     "final line with wrong reset value",
			line:     "execute if score @s intro matches 5.. run scoreboard players set @s intro 0",
			expected: Statement{},
		},
		{
			name:     "double space between tokens",
			line:     "execute if score @s  intro matches 5 run say hi",
			expected: Statement{},
		},
		{
			name:     "keyword prefix is not a keyword",
			line:     "executes if score @s intro matches 5 run say hi",
			expected: Statement{},
		},
		{
			name:     "arbitrary command",
			line:     "give @p minecraft:diamond 1",
			expected: Statement{},
		},
		{
			name:     "empty",
			line:     "",
			expected: Statement{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.line)
			if got != tt.expected {
				t.Errorf("Classify(%q)\n got      %+v\n expected %+v", tt.line, got, tt.expected)
			}
		})
	}
}

func TestKind_String(t *testing.T) {
	if KindCommand.String() != "command" || KindUnrecognized.String() != "unrecognized" {
		t.Error("Unexpected kind names")
	}
}
