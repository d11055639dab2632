package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Model generates a text completion for a prompt
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ModelFactory returns the model registered under name
type ModelFactory func(name string) Model

// ModelNames lists the models tried at startup, primary first
var ModelNames = []string{
	"models/gemini-2.0-flash-001",
	"models/gemini-2.5-flash",
	"models/gemini-flash-latest",
	"models/gemini-pro-latest",
}

const probePrompt = "Hola"

// Probe returns the first model in names that answers a short test prompt
// with non-empty text. The error lists every failure when none does.
func Probe(ctx context.Context, factory ModelFactory, names []string) (Model, string, error) {
	var errs []error
	for _, name := range names {
		m := factory(name)
		text, err := m.Generate(ctx, probePrompt)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errors.New("empty response")
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		return m, name, nil
	}
	if len(errs) == 0 {
		return nil, "", errors.New("no models to probe")
	}
	return nil, "", errors.Join(errs...)
}
