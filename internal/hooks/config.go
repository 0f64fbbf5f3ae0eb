package hooks

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Hook is one shell command bound to a set of event topics.
type Hook struct {
	Name        string   `yaml:"name"`
	Topics      []string `yaml:"topics"` // NATS-style patterns
	Command     string   `yaml:"command"`
	TimeoutSecs int      `yaml:"timeout_secs"`
	CWD         string   `yaml:"cwd"`
}

// Timeout returns the hook's timeout, or DefaultTimeout when unset.
func (h Hook) Timeout() time.Duration {
	if h.TimeoutSecs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(h.TimeoutSecs) * time.Second
}

type file struct {
	Hooks []Hook `yaml:"hooks"`
}

// Parse decodes a hooks file:
//
//	hooks:
//	  - name: notify-scheduler
//	    topics: [gatecheck.completed]
//	    command: ./notify.sh
//	    timeout_secs: 10
func Parse(data []byte) ([]Hook, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing hooks: %w", err)
	}
	var errs []error
	seen := make(map[string]bool, len(f.Hooks))
	for i, h := range f.Hooks {
		switch {
		case h.Name == "":
			errs = append(errs, fmt.Errorf("hook %d: name is required", i))
		case seen[h.Name]:
			errs = append(errs, fmt.Errorf("hook %q: duplicate name", h.Name))
		case h.Command == "":
			errs = append(errs, fmt.Errorf("hook %q: command is required", h.Name))
		case len(h.Topics) == 0:
			errs = append(errs, fmt.Errorf("hook %q: at least one topic is required", h.Name))
		}
		seen[h.Name] = true
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return f.Hooks, nil
}

// LoadFile reads and parses the hooks file at path.
func LoadFile(path string) ([]Hook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading hooks file: %w", err)
	}
	return Parse(data)
}
