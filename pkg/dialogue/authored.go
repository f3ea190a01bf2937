package dialogue

import (
	"regexp"
	"strings"
)

var (
	speakerLineRegex = regexp.MustCompile(`^([A-Za-z]+): (.*)$`)
	wordRegex        = regexp.MustCompile(`[A-Za-z]+`)
)

// SpanForLine estimates how long a line stays on screen. Every run of letters
// in the trimmed line counts as a word, including the speaker label.
func SpanForLine(line string, characterMultiplier, minimalSpan int) int {
	words := wordRegex.FindAllStringIndex(strings.TrimSpace(line), -1)
	return minimalSpan + len(words)*characterMultiplier
}

// ParseAuthoredScript turns `Speaker: text` lines into commands. Lines that do
// not start with a speaker label continue the previous command; blank lines
// are skipped. Unknown speakers and leading continuation lines are dropped
// and reported as diagnostics; parsing itself never fails.
func ParseAuthoredScript(text string, registry Registry, characterMultiplier, minimalSpan int) ([]Command, []Diagnostic) {
	var (
		commands    []Command
		diagnostics []Diagnostic
	)

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if match := speakerLineRegex.FindStringSubmatch(line); match != nil {
			user, ok := registry.Resolve(match[1])
			if !ok {
				diagnostics = append(diagnostics, Diagnostic{
					Line: i + 1,
					Kind: DiagnosticUnknownSpeaker,
					Text: "Unknown speaker: " + strings.ToLower(match[1]),
				})
				continue
			}
			span := SpanForLine(line, characterMultiplier, minimalSpan)
			commands = append(commands, NewCommand(user, span, match[2]))
			continue
		}

		if len(commands) == 0 {
			diagnostics = append(diagnostics, Diagnostic{
				Line: i + 1,
				Kind: DiagnosticInvalidLine,
				Text: "Invalid command line: " + line,
			})
			continue
		}
		last := &commands[len(commands)-1]
		last.Content += "\n" + line
	}

	return commands, diagnostics
}
