package artifact

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

// InitialLine declares the counter that drives the script.
func InitialLine(name string, increment int) string {
	return fmt.Sprintf("scoreboard players add @s %s %d", name, increment)
}

// CommandLine gates payload on the counter reaching exactly counter.
func CommandLine(name string, counter int, payload string) string {
	return fmt.Sprintf("execute if score @s %s matches %d run %s", name, counter, payload)
}

// FinalLine resets the counter once it reaches counter or more.
func FinalLine(name string, counter int) string {
	return fmt.Sprintf("execute if score @s %s matches %d.. run scoreboard players set @s %s -1", name, counter, name)
}

// Render returns the payload emitted for a command: the speaker's format
// applied to the content, or the content itself when no speaker is attached.
func Render(c dialogue.Command) string {
	if c.User != nil {
		return c.User.Format.Render(c.Content)
	}
	return c.Content
}

// Build generates the artifact for commands. Custom commands are written
// verbatim and do not advance the counter. Build returns an empty string
// when settings fail Validate.
func Build(commands []dialogue.Command, settings dialogue.ScriptSettings) string {
	var b strings.Builder
	// strings.Builder never fails; invalid settings leave b empty
	_ = BuildTo(&b, commands, settings)
	return b.String()
}

// BuildTo writes the artifact for commands to w. Nothing is written when
// settings fail Validate.
func BuildTo(w io.Writer, commands []dialogue.Command, settings dialogue.ScriptSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	bw := bufio.NewWriter(w)

	increment := settings.Increment
	if increment == 0 {
		increment = 1
	}
	if _, err := fmt.Fprintln(bw, InitialLine(settings.Name, increment)); err != nil {
		return fmt.Errorf("failed to write initial line: %w", err)
	}

	counter := settings.InitialSpan
	for i, c := range commands {
		var line string
		if c.IsCustom {
			line = c.Content
		} else {
			line = CommandLine(settings.Name, counter, Render(c))
			counter += c.Span
		}
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return fmt.Errorf("failed to write command %d: %w", i, err)
		}
	}

	if _, err := fmt.Fprintln(bw, FinalLine(settings.Name, counter)); err != nil {
		return fmt.Errorf("failed to write final line: %w", err)
	}
	return bw.Flush()
}

// Duration returns the total counter length of commands, from the first
// command firing to the reset.
func Duration(commands []dialogue.Command) int {
	total := 0
	for _, c := range commands {
		if !c.IsCustom {
			total += c.Span
		}
	}
	return total
}
