// Package embedding provides the embedding provider used for documents, queries and
// knowledge-base questions.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownModel is returned for a model selector outside the known set.
	ErrUnknownModel = errors.New("unknown embedding model type")
	// ErrEmptyText is returned when asked to embed blank text.
	ErrEmptyText = errors.New("text is empty")
	// ErrDimensionMismatch is returned when the API yields a vector of the wrong length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// ModelType selects which embedding deployment serves a request.
type ModelType int

const (
	// AzureOpenAI is the cloud-managed deployment ("azureopenai").
	AzureOpenAI ModelType = iota + 1
	// OpenAI is the direct OpenAI API ("openai").
	OpenAI
)

func (m ModelType) String() string {
	switch m {
	case AzureOpenAI:
		return "azureopenai"
	case OpenAI:
		return "openai"
	default:
		return fmt.Sprintf("ModelType(%d)", int(m))
	}
}

// ParseModelType parses the external selector tag.
func ParseModelType(s string) (ModelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "azureopenai":
		return AzureOpenAI, nil
	case "openai":
		return OpenAI, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownModel, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m ModelType) MarshalText() ([]byte, error) {
	if m != AzureOpenAI && m != OpenAI {
		return nil, fmt.Errorf("%w: %d", ErrUnknownModel, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *ModelType) UnmarshalText(b []byte) error {
	parsed, err := ParseModelType(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Provider turns text into a fixed-length vector.
type Provider interface {
	Embed(ctx context.Context, model ModelType, text string) ([]float32, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, model ModelType, text string) ([]float32, error)

// Embed implements Provider.
func (f ProviderFunc) Embed(ctx context.Context, model ModelType, text string) ([]float32, error) {
	return f(ctx, model, text)
}
