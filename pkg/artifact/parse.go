// Package artifact reads and writes counter-gated dialogue artifacts: a
// scoreboard declaration, one `execute if score ... matches <n> run ...`
// statement per dialogue step, and an open-ended reset statement.
package artifact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

var (
	ErrNotEnoughLines    = errors.New("invalid script format: not enough lines")
	ErrInconsistentName  = errors.New("inconsistent script name")
	ErrMissingScriptName = errors.New("invalid script format: could not determine script name")
)

// ParseError is a fatal parse failure tied to a line of the input.
type ParseError struct {
	Line int    // 1-based line number in the input
	Text string // the offending line
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v: %s", e.Line, e.Err, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Script is the structured form of a parsed artifact.
type Script struct {
	Name        string                `json:"name"`
	InitialSpan int                   `json:"initial_span"`
	Increment   int                   `json:"increment,omitempty"` // from the initial line, 0 when it was missing
	Commands    []dialogue.Command    `json:"commands"`
	Diagnostics []dialogue.Diagnostic `json:"diagnostics,omitempty"`
}

// Settings returns script settings that rebuild this artifact.
func (s *Script) Settings() dialogue.ScriptSettings {
	settings := dialogue.DefaultSettings()
	settings.Name = s.Name
	settings.InitialSpan = s.InitialSpan
	if s.Increment > 0 {
		settings.Increment = s.Increment
	}
	return settings
}

type parseOptions struct {
	speakers dialogue.Registry
}

// Option configures Parse.
type Option func(*parseOptions)

// WithSpeakers attributes each command to the speaker whose format produced
// its payload, recovering the raw spoken content.
func WithSpeakers(registry dialogue.Registry) Option {
	return func(o *parseOptions) {
		o.speakers = registry
	}
}

type numberedLine struct {
	num  int
	text string
}

// Parse reads a generated artifact back into commands. Lines that are not
// command statements become custom commands. A missing initial line is
// tolerated, the name then comes from the first command statement. A last
// line that is not the reset statement leaves the final span at zero.
func Parse(text string, opts ...Option) (*Script, error) {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	var lines []numberedLine
	for i, l := range strings.Split(text, "\n") {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, numberedLine{num: i + 1, text: l})
	}
	if len(lines) < 2 {
		return nil, ErrNotEnoughLines
	}

	script := &Script{Commands: []dialogue.Command{}}
	start := 0
	if st := Classify(lines[0].text); st.Kind == KindInitial {
		script.Name = st.Name
		script.Increment = st.Counter
		start = 1
	}

	bindName := func(st Statement, line numberedLine) error {
		if script.Name == "" {
			script.Name = st.Name
			return nil
		}
		if st.Name != script.Name {
			return &ParseError{
				Line: line.num,
				Text: line.text,
				Err:  fmt.Errorf("%w in %s line: expected %s, got %s", ErrInconsistentName, st.Kind, script.Name, st.Name),
			}
		}
		return nil
	}

	// prev indexes the last non-custom command; custom commands do not take
	// part in counter bookkeeping.
	prev := -1
	prevCounter := 0
	setPrevSpan := func(span int) {
		if prev < 0 {
			script.InitialSpan = span
			return
		}
		script.Commands[prev].Span = span
	}

	last := len(lines) - 1
	for _, line := range lines[start:last] {
		st := Classify(line.text)
		if st.Kind != KindCommand {
			script.Commands = append(script.Commands, dialogue.NewCustomCommand(line.text))
			script.Diagnostics = append(script.Diagnostics, dialogue.Diagnostic{
				Line: line.num,
				Kind: dialogue.DiagnosticUnrecognizedStatement,
				Text: line.text,
			})
			continue
		}
		if err := bindName(st, line); err != nil {
			return nil, err
		}

		setPrevSpan(st.Counter - prevCounter)
		script.Commands = append(script.Commands, newCommand(st.Payload, o.speakers))
		prev = len(script.Commands) - 1
		prevCounter = st.Counter
	}

	final := lines[last]
	if st := Classify(final.text); st.Kind == KindFinal {
		if err := bindName(st, final); err != nil {
			return nil, err
		}
		setPrevSpan(st.Counter - prevCounter)
	} else {
		if prev >= 0 {
			script.Commands[prev].Span = 0
		}
		script.Diagnostics = append(script.Diagnostics, dialogue.Diagnostic{
			Line: final.num,
			Kind: dialogue.DiagnosticUnterminatedScript,
			Text: final.text,
		})
	}

	if script.Name == "" {
		return nil, ErrMissingScriptName
	}
	return script, nil
}

func newCommand(payload string, speakers dialogue.Registry) dialogue.Command {
	if user, content, ok := speakers.Attribute(payload); ok {
		return dialogue.NewCommand(user, 0, content)
	}
	return dialogue.NewCommand(nil, 0, payload)
}
