package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/dialogue-engine/pkg/dialogue"
)

// SpeakersFile is the on-disk speaker registry.
//
// Example:
//
//	speakers:
//	  - name: Alice
//	    script_prefix: alice
//	    format: 'tellraw @a {"text":"<Alice> %s"}'
type SpeakersFile struct {
	Speakers dialogue.Registry `yaml:"speakers"`
}

// LoadSpeakersFile reads and validates a speaker registry from disk.
func LoadSpeakersFile(path string) (dialogue.Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open speakers file %q: %w", path, err)
	}
	defer f.Close()

	registry, err := LoadSpeakers(f)
	if err != nil {
		return nil, fmt.Errorf("parse speakers file %q: %w", path, err)
	}
	return registry, nil
}

// LoadSpeakers parses a speaker registry from YAML. Unknown keys are
// rejected.
func LoadSpeakers(r io.Reader) (dialogue.Registry, error) {
	var sf SpeakersFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		if err == io.EOF {
			return dialogue.Registry{}, nil
		}
		return nil, fmt.Errorf("decode speakers yaml: %w", err)
	}
	if err := sf.Speakers.Validate(); err != nil {
		return nil, err
	}
	if sf.Speakers == nil {
		sf.Speakers = dialogue.Registry{}
	}
	return sf.Speakers, nil
}
