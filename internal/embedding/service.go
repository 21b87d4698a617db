// Package embedding provides HTTP clients for embedding models and the
// fallback wrapper the engine consumes. The engine never sees an
// embedding error: unavailable backends yield a deterministic
// zero vector so saves and searches degrade instead of failing.
package embedding

import (
	"context"
	"log"

	"github.com/Ayato-AI-for-Auto/LogicHive/internal/storage"
)

// Provider is a raw embedding backend.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelInfo() storage.ModelInfo
}

// Service wraps a Provider with the zero-vector fallback contract.
type Service struct {
	provider Provider
}

// NewService wraps the given provider.
func NewService(provider Provider) *Service {
	return &Service{provider: provider}
}

// Embed returns the embedding for text. On any backend failure it logs
// and returns a zero vector of the model's dimension, never an error.
func (s *Service) Embed(ctx context.Context, text string) []float32 {
	vec, err := s.provider.Embed(ctx, text)
	if err != nil {
		info := s.provider.ModelInfo()
		log.Printf("Warning: embedding failed, falling back to zero vector: %v", err)
		return make([]float32, info.Dimension)
	}
	return vec
}

// ModelInfo reports the active model's name and dimension.
func (s *Service) ModelInfo() storage.ModelInfo {
	return s.provider.ModelInfo()
}
