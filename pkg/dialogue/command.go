package dialogue

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Command is one step of a dialogue sequence: either a spoken line attributed
// to a speaker, or a custom line that is passed through verbatim.
type Command struct {
	ID       uuid.UUID `json:"id"`                  // Fresh per construction, used for range lookups only
	Span     int       `json:"span"`                // Counter delta until the next step fires
	Content  string    `json:"content"`             // Spoken content, or the raw line(s) when IsCustom
	IsCustom bool      `json:"is_custom"`           // Opaque pass-through line
	User     *Speaker  `json:"user,omitempty"`      // Resolved speaker, nil for custom commands
	UserName string    `json:"user_name,omitempty"` // Name of User, kept for clients that only send names
}

// NewCommand creates a spoken command for user.
func NewCommand(user *Speaker, span int, content string) Command {
	c := Command{
		ID:      uuid.New(),
		Span:    span,
		Content: content,
		User:    user,
	}
	if user != nil {
		c.UserName = user.Name
	}
	return c
}

// NewCustomCommand creates a timing-inert pass-through command.
func NewCustomCommand(content string) Command {
	return Command{
		ID:       uuid.New(),
		Content:  content,
		IsCustom: true,
	}
}

// Resolve re-attaches speaker profiles to commands that only carry a user
// name, as happens when commands arrive over the wire. It returns an error
// naming the first unknown speaker.
func Resolve(commands []Command, registry Registry) ([]Command, error) {
	out := make([]Command, len(commands))
	for i, c := range commands {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if !c.IsCustom && c.User == nil && c.UserName != "" {
			user, ok := registry.ByName(c.UserName)
			if !ok {
				return nil, fmt.Errorf("command %d: unknown speaker: %s", i, c.UserName)
			}
			c.User = user
		}
		out[i] = c
	}
	return out, nil
}

// Playable returns the commands that take part in playback, in order.
func Playable(commands []Command) []Command {
	out := make([]Command, 0, len(commands))
	for _, c := range commands {
		if !c.IsCustom {
			out = append(out, c)
		}
	}
	return out
}

// ScriptSettings are the per-script generation parameters.
type ScriptSettings struct {
	Name                string `json:"name" yaml:"name"`                                 // Scoreboard objective used as the counter
	InitialSpan         int    `json:"initial_span" yaml:"initial_span"`                 // Wait before the first command fires
	CharacterMultiplier int    `json:"character_multiplier" yaml:"character_multiplier"` // Span per word in authored lines
	MinimalSpan         int    `json:"minimal_span" yaml:"minimal_span"`                 // Base span of every authored line
	Increment           int    `json:"increment,omitempty" yaml:"increment,omitempty"`   // Counter increment per tick
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() ScriptSettings {
	return ScriptSettings{
		Name:                "",
		InitialSpan:         10,
		CharacterMultiplier: 4,
		MinimalSpan:         20,
		Increment:           1,
	}
}

// Validate checks the settings can be used to build an artifact.
func (s ScriptSettings) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("script name cannot be empty")
	}
	if strings.ContainsAny(s.Name, " \t\r\n") {
		return fmt.Errorf("script name %q cannot contain whitespace", s.Name)
	}
	if s.InitialSpan < 0 {
		return fmt.Errorf("initial span cannot be negative")
	}
	if s.CharacterMultiplier < 0 || s.MinimalSpan < 0 {
		return fmt.Errorf("span parameters cannot be negative")
	}
	if s.Increment < 0 {
		return fmt.Errorf("increment cannot be negative")
	}
	return nil
}

// WithDefaults fills zero-valued timing fields from DefaultSettings. A zero
// CharacterMultiplier together with a zero MinimalSpan reads as unset, so
// both heuristic parameters are replaced; set either one to keep both.
func (s ScriptSettings) WithDefaults() ScriptSettings {
	d := DefaultSettings()
	if s.Increment == 0 {
		s.Increment = d.Increment
	}
	if s.CharacterMultiplier == 0 && s.MinimalSpan == 0 {
		s.CharacterMultiplier = d.CharacterMultiplier
		s.MinimalSpan = d.MinimalSpan
	}
	return s
}

// DiagnosticKind classifies a recoverable, per-line problem.
type DiagnosticKind string

const (
	DiagnosticUnknownSpeaker        DiagnosticKind = "unknown_speaker"
	DiagnosticInvalidLine           DiagnosticKind = "invalid_line"
	DiagnosticUnrecognizedStatement DiagnosticKind = "unrecognized_statement"
	DiagnosticUnterminatedScript    DiagnosticKind = "unterminated_script"
)

// Diagnostic reports a line that was dropped or passed through.
type Diagnostic struct {
	Line int            `json:"line"` // 1-based line number in the input
	Kind DiagnosticKind `json:"kind"`
	Text string         `json:"text"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %s", d.Line, d.Kind, d.Text)
}
