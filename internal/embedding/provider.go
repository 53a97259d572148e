// Package embedding turns text into fixed-length vectors.
package embedding

import (
	"context"
	"io"
	"sync"

	"github.com/jonathan/codemap/internal/apperr"
)

// Provider maps text to a vector. Implementations must be deterministic for a
// fixed model version and safe for concurrent use.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// BatchProvider embeds several texts per call. Output order matches input.
type BatchProvider interface {
	Provider
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Opener constructs a provider. It runs once, during Lazy.Load.
type Opener func(ctx context.Context) (Provider, error)

// Lazy defers provider construction to an explicit Load and rejects calls
// made before it with a NotInitialized error.
type Lazy struct {
	open  Opener
	model string

	mu sync.RWMutex
	p  Provider
}

// NewLazy returns a provider that is not usable until Load succeeds.
// model is reported by Model before loading.
func NewLazy(model string, open Opener) *Lazy {
	return &Lazy{open: open, model: model}
}

// Load opens the underlying provider. Calling Load again after success is a no-op.
func (l *Lazy) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.p != nil {
		return nil
	}
	p, err := l.open(ctx)
	if err != nil {
		return err
	}
	l.p = p
	return nil
}

// Loaded reports whether Load has succeeded.
func (l *Lazy) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.p != nil
}

func (l *Lazy) provider(op string) (Provider, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.p == nil {
		return nil, apperr.NotInitialized(op, "embedding model not loaded")
	}
	return l.p, nil
}

// Embed delegates to the loaded provider.
func (l *Lazy) Embed(ctx context.Context, text string) ([]float32, error) {
	p, err := l.provider("embed")
	if err != nil {
		return nil, err
	}
	return p.Embed(ctx, text)
}

// EmbedBatch uses the loaded provider's batch call when it has one, else
// embeds texts one at a time.
func (l *Lazy) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p, err := l.provider("embed batch")
	if err != nil {
		return nil, err
	}
	if bp, ok := p.(BatchProvider); ok {
		return bp.EmbedBatch(ctx, texts)
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := p.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Model returns the loaded provider's model, or the configured name.
func (l *Lazy) Model() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.p != nil {
		return l.p.Model()
	}
	return l.model
}

// Close releases the loaded provider if it holds resources. Later calls fail
// with NotInitialized until Load runs again.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := l.p
	l.p = nil
	if c, ok := p.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
