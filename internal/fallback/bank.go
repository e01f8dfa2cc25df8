// Package fallback produces readings and chat replies from static content when
// the vision model cannot be used.
package fallback

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const contextMarker = "{context}"

//go:embed bank.yaml
var bankYAML []byte

// LinePool holds the candidate fragments for one palm line.
type LinePool struct {
	Observations []string `yaml:"observations"`
	Meanings     []string `yaml:"meanings"`
}

// ContextClauses are spliced into an overall template in place of {context}.
type ContextClauses struct {
	HandAndFocus string `yaml:"hand_and_focus"`
	HandOnly     string `yaml:"hand_only"`
	FocusOnly    string `yaml:"focus_only"`
	Generic      string `yaml:"generic"`
}

// ChatCategory is a keyword class for fallback chat replies.
type ChatCategory struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Replies  []string `yaml:"replies"`
}

// Bank is the read-only content used by the fallback generators.
type Bank struct {
	Lines struct {
		Heart LinePool `yaml:"heart"`
		Head  LinePool `yaml:"head"`
		Life  LinePool `yaml:"life"`
	} `yaml:"lines"`
	Fate struct {
		Observation string `yaml:"observation"`
		Meaning     string `yaml:"meaning"`
	} `yaml:"fate"`
	Overall []string       `yaml:"overall"`
	Context ContextClauses `yaml:"context"`
	Advice  []string       `yaml:"advice"`
	Chat    struct {
		Categories []ChatCategory `yaml:"categories"`
		General    []string       `yaml:"general"`
	} `yaml:"chat"`
}

var defaultBank = sync.OnceValues(func() (*Bank, error) {
	return LoadBank(bankYAML)
})

// DefaultBank returns the embedded content bank.
func DefaultBank() (*Bank, error) {
	return defaultBank()
}

// LoadBank parses and validates a YAML content bank.
func LoadBank(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("fallback: parse content bank: %w", err)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

func (b *Bank) validate() error {
	pools := map[string][]string{
		"lines.heart.observations": b.Lines.Heart.Observations,
		"lines.heart.meanings":     b.Lines.Heart.Meanings,
		"lines.head.observations":  b.Lines.Head.Observations,
		"lines.head.meanings":      b.Lines.Head.Meanings,
		"lines.life.observations":  b.Lines.Life.Observations,
		"lines.life.meanings":      b.Lines.Life.Meanings,
		"overall":                  b.Overall,
		"advice":                   b.Advice,
		"chat.general":             b.Chat.General,
	}
	for name, pool := range pools {
		if len(pool) == 0 {
			return fmt.Errorf("fallback: content bank pool %q is empty", name)
		}
	}
	if strings.TrimSpace(b.Fate.Observation) == "" || strings.TrimSpace(b.Fate.Meaning) == "" {
		return errors.New("fallback: content bank fate line is incomplete")
	}
	for i, tmpl := range b.Overall {
		if strings.Count(tmpl, contextMarker) != 1 {
			return fmt.Errorf("fallback: overall template %d must contain %s exactly once", i, contextMarker)
		}
	}
	if b.Context.HandAndFocus == "" || b.Context.HandOnly == "" || b.Context.FocusOnly == "" || b.Context.Generic == "" {
		return errors.New("fallback: content bank context clauses are incomplete")
	}
	for _, c := range b.Chat.Categories {
		if c.Name == "" || len(c.Keywords) == 0 || len(c.Replies) == 0 {
			return fmt.Errorf("fallback: chat category %q is incomplete", c.Name)
		}
	}
	return nil
}
