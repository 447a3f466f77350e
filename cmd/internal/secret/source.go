package secret

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Source resolves a secret from an environment variable, falling back to a
// terminal prompt. The first result, success or failure, is cached.
type Source struct {
	envVar string
	label  string
	prompt io.Writer
	fd     int

	once  sync.Once
	value string
	err   error
}

// NewSource builds a Source reading envVar before prompting for label on
// stderr.
func NewSource(envVar, label string) *Source {
	return &Source{
		envVar: strings.TrimSpace(envVar),
		label:  label,
		prompt: os.Stderr,
		fd:     int(os.Stdin.Fd()),
	}
}

func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		s.value, s.err = s.resolve()
	})
	return s.value, s.err
}

func (s *Source) resolve() (string, error) {
	if s.envVar != "" {
		if value, ok := os.LookupEnv(s.envVar); ok {
			if strings.TrimSpace(value) == "" {
				return "", fmt.Errorf("%s is set but empty", s.envVar)
			}
			return value, nil
		}
	}
	if !term.IsTerminal(s.fd) {
		if s.envVar != "" {
			return "", fmt.Errorf("%s required; set %s or run interactively", s.label, s.envVar)
		}
		return "", fmt.Errorf("%s required and no terminal available", s.label)
	}
	fmt.Fprintf(s.prompt, "Enter %s: ", s.label)
	raw, err := term.ReadPassword(s.fd)
	fmt.Fprintln(s.prompt)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", s.label, err)
	}
	value := string(raw)
	if strings.TrimSpace(value) == "" {
		return "", errors.New(s.label + " cannot be empty")
	}
	return value, nil
}
