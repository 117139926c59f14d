package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	contractx "github.com/tanpawarit/fanout-concierge/agent/contract"
)

//go:embed default.yaml
var defaultRaw []byte

// Agent describes one routable handler.
type Agent struct {
	Name           string `yaml:"name"`
	DisplayName    string `yaml:"display_name"`
	Capability     string `yaml:"capability"`
	ExampleCommand string `yaml:"example_command"`
	// Structured marks handlers whose raw output needs a summary even when
	// they are the only agent assigned.
	Structured bool `yaml:"structured"`
}

type file struct {
	Terminal Agent   `yaml:"terminal"`
	Agents   []Agent `yaml:"agents"`
}

// Catalog is the read-only set of registered agents plus the terminal sentinel.
// It is safe for concurrent use once built.
type Catalog struct {
	terminal Agent
	agents   []Agent
	byName   map[string]Agent
}

func Default() *Catalog {
	c, err := Parse(defaultRaw)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded default is invalid: %v", err))
	}
	return c
}

// Load reads a catalog file; an empty path returns the embedded default.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", contractx.ErrValidation, err)
	}
	if strings.TrimSpace(f.Terminal.Name) == "" {
		f.Terminal.Name = contractx.TerminalAgent
	}
	if f.Terminal.Name != contractx.TerminalAgent {
		return nil, fmt.Errorf("%w: terminal agent must be named %q", contractx.ErrValidation, contractx.TerminalAgent)
	}
	return New(f.Terminal, f.Agents...)
}

func New(terminal Agent, agents ...Agent) (*Catalog, error) {
	terminal.Name = contractx.TerminalAgent
	c := &Catalog{
		terminal: terminal,
		agents:   make([]Agent, 0, len(agents)),
		byName:   make(map[string]Agent, len(agents)),
	}
	for _, a := range agents {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" {
			return nil, fmt.Errorf("%w: agent name is empty", contractx.ErrValidation)
		}
		if a.Name == contractx.TerminalAgent {
			return nil, fmt.Errorf("%w: agent name %q is reserved", contractx.ErrValidation, a.Name)
		}
		if _, dup := c.byName[a.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate agent %q", contractx.ErrValidation, a.Name)
		}
		c.byName[a.Name] = a
		c.agents = append(c.agents, a)
	}
	return c, nil
}

// Names lists the registered handler names in declaration order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.agents))
	for _, a := range c.agents {
		out = append(out, a.Name)
	}
	return out
}

// AllowedNames includes the terminal sentinel.
func (c *Catalog) AllowedNames() []string {
	return append(c.Names(), c.terminal.Name)
}

func (c *Catalog) Lookup(name string) (Agent, bool) {
	a, ok := c.byName[name]
	return a, ok
}

func (c *Catalog) IsRegistered(name string) bool {
	_, ok := c.byName[name]
	return ok
}

func (c *Catalog) IsStructured(name string) bool {
	a, ok := c.byName[name]
	return ok && a.Structured
}

// Capabilities renders "- name: capability" lines for prompts.
func (c *Catalog) Capabilities() string {
	lines := make([]string, 0, len(c.agents)+1)
	for _, a := range c.agents {
		lines = append(lines, fmt.Sprintf("- %s: %s", a.Name, strings.TrimSpace(a.Capability)))
	}
	lines = append(lines, fmt.Sprintf("- %s: %s", c.terminal.Name, strings.TrimSpace(c.terminal.Capability)))
	return strings.Join(lines, "\n")
}

// Examples renders one example command per agent with {now} substituted.
func (c *Catalog) Examples(now string) string {
	lines := make([]string, 0, len(c.agents))
	for _, a := range c.agents {
		ex := strings.TrimSpace(a.ExampleCommand)
		if ex == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", a.Name, strings.ReplaceAll(ex, "{now}", now)))
	}
	return strings.Join(lines, "\n")
}

// Validate checks every assignment and reports all problems in one error.
func (c *Catalog) Validate(set contractx.AssignmentSet) error {
	var issues []contractx.ValidationIssue
	for i, a := range set {
		name := strings.TrimSpace(a.Agent)
		switch {
		case name == contractx.TerminalAgent:
		case !c.IsRegistered(name):
			issues = append(issues, contractx.ValidationIssue{Index: i, Agent: a.Agent, Reason: "unknown agent"})
		case a.Finish:
			issues = append(issues, contractx.ValidationIssue{Index: i, Agent: a.Agent, Reason: "finish is only allowed on " + contractx.TerminalAgent})
		}
	}
	if len(issues) > 0 {
		return &contractx.ValidationError{Issues: issues}
	}
	return nil
}

// MissingHandlers returns catalog agents absent from registered.
func (c *Catalog) MissingHandlers(registered map[string]contractx.Handler) []string {
	var missing []string
	for _, a := range c.agents {
		if registered[a.Name] == nil {
			missing = append(missing, a.Name)
		}
	}
	return missing
}

// Unknown returns handler names that are not in the catalog, sorted.
func (c *Catalog) Unknown(registered map[string]contractx.Handler) []string {
	var unknown []string
	for name := range registered {
		if !c.IsRegistered(name) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}
