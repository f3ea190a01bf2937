package dialogue

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Placeholder is the marker in a speaker format that receives the spoken content.
const Placeholder = "%s"

// Template is a speaker's emission format, e.g. `tellraw @a {"text":"<Bob> %s"}`.
// Only the first placeholder is substituted.
type Template string

// Markers returns how many placeholders the template contains.
func (t Template) Markers() int {
	return strings.Count(string(t), Placeholder)
}

// Validate returns an error unless the template holds exactly one placeholder.
func (t Template) Validate() error {
	switch n := t.Markers(); n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("format %q has no %s placeholder", string(t), Placeholder)
	default:
		return fmt.Errorf("format %q has %d %s placeholders, expected 1", string(t), n, Placeholder)
	}
}

// Render substitutes content for the first placeholder. A template without a
// placeholder is returned unchanged.
func (t Template) Render(content string) string {
	return strings.Replace(string(t), Placeholder, content, 1)
}

// Extract reverses Render. It reports false when the template has no
// placeholder or rendered does not fit around it.
func (t Template) Extract(rendered string) (string, bool) {
	prefix, suffix, ok := strings.Cut(string(t), Placeholder)
	if !ok {
		return "", false
	}
	if len(rendered) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(rendered, prefix) || !strings.HasSuffix(rendered, suffix) {
		return "", false
	}
	return rendered[len(prefix) : len(rendered)-len(suffix)], true
}

// literalLen is the amount of fixed text around the placeholder.
func (t Template) literalLen() int {
	return len(t) - len(Placeholder)
}

// Speaker is an authored persona that can be referenced from a script.
type Speaker struct {
	Name         string   `json:"name" yaml:"name"`                   // Stable identifier
	ScriptPrefix string   `json:"script_prefix" yaml:"script_prefix"` // Label used in authored scripts, case-insensitive
	Format       Template `json:"format" yaml:"format"`               // Emission template with one %s
}

// Validate checks that the speaker can be resolved and rendered.
func (s *Speaker) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("speaker name cannot be empty")
	}
	if strings.TrimSpace(s.ScriptPrefix) == "" {
		return fmt.Errorf("speaker %s: script prefix cannot be empty", s.Name)
	}
	if err := s.Format.Validate(); err != nil {
		return fmt.Errorf("speaker %s: %w", s.Name, err)
	}
	return nil
}

// Registry is the ordered list of known speakers.
type Registry []Speaker

// Resolve finds the speaker whose script prefix matches token, ignoring case.
// The first match in registry order wins.
func (r Registry) Resolve(token string) (*Speaker, bool) {
	folder := cases.Fold() // a Caser is stateful; one per call
	want := folder.String(token)
	for i := range r {
		if folder.String(r[i].ScriptPrefix) == want {
			return &r[i], true
		}
	}
	return nil, false
}

// ByName returns the speaker with the given name.
func (r Registry) ByName(name string) (*Speaker, bool) {
	for i := range r {
		if r[i].Name == name {
			return &r[i], true
		}
	}
	return nil, false
}

// Attribute finds the speaker whose format produced rendered and returns the
// extracted content. When several formats fit, the one with the most literal
// text wins, ties going to registry order.
func (r Registry) Attribute(rendered string) (*Speaker, string, bool) {
	var (
		best    *Speaker
		content string
	)
	for i := range r {
		c, ok := r[i].Format.Extract(rendered)
		if !ok {
			continue
		}
		if best == nil || r[i].Format.literalLen() > best.Format.literalLen() {
			best = &r[i]
			content = c
		}
	}
	return best, content, best != nil
}

// Validate checks every speaker and rejects duplicate names or prefixes.
func (r Registry) Validate() error {
	folder := cases.Fold()
	names := make(map[string]bool, len(r))
	prefixes := make(map[string]bool, len(r))
	for i := range r {
		if err := r[i].Validate(); err != nil {
			return err
		}
		if names[r[i].Name] {
			return fmt.Errorf("duplicate speaker name: %s", r[i].Name)
		}
		names[r[i].Name] = true

		p := folder.String(r[i].ScriptPrefix)
		if prefixes[p] {
			return fmt.Errorf("duplicate script prefix: %s", r[i].ScriptPrefix)
		}
		prefixes[p] = true
	}
	return nil
}
