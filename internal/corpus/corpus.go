package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jonathan/codemap/internal/apperr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the load state of a Cache.
type State string

const (
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

// Embedder is the embedding provider as the corpus sees it.
type Embedder interface {
	Load(ctx context.Context) error
	Loaded() bool
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Options configures a Cache.
type Options struct {
	DataDir   string
	CacheFile string
	// Workers bounds concurrent embedding requests.
	Workers int
	// BatchSize is the number of descriptions per embedding request.
	BatchSize int
	// Regenerate ignores an existing artifact.
	Regenerate bool
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 32
	}
	return o
}

// Snapshot is the loaded corpus. It is never mutated after publication.
type Snapshot struct {
	Postings  []Posting
	Vectors   [][]float32
	Dimension int
	Model     string
	LoadedAt  time.Time
	FromCache bool
}

// Len returns the number of postings.
func (s *Snapshot) Len() int {
	return len(s.Postings)
}

// Posting returns the posting at index.
func (s *Snapshot) Posting(index int) (Posting, bool) {
	if index < 0 || index >= len(s.Postings) {
		return Posting{}, false
	}
	return s.Postings[index], true
}

// Cache owns the corpus load lifecycle.
type Cache struct {
	opts     Options
	embedder Embedder
	logger   *zap.Logger

	startOnce sync.Once
	done      chan struct{}

	mu    sync.RWMutex
	state State
	err   error
	snap  *Snapshot
}

// New returns a Cache in the starting state. Nothing is loaded until Start or Load.
func New(opts Options, embedder Embedder, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		opts:     opts.withDefaults(),
		embedder: embedder,
		logger:   logger.Named("corpus"),
		done:     make(chan struct{}),
		state:    StateStarting,
	}
}

// Start runs Load in the background. Only the first call has an effect.
func (c *Cache) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go func() {
			_ = c.load(ctx)
		}()
	})
}

// Load runs the load synchronously and returns its outcome. If a load was
// already started, Load waits for it instead.
func (c *Cache) Load(ctx context.Context) error {
	ran := false
	c.startOnce.Do(func() {
		ran = true
		_ = c.load(ctx)
	})
	if !ran {
		if err := c.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := c.State()
	return err
}

// Wait blocks until the load finishes or ctx ends.
func (c *Cache) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state and, when failed, the load error.
func (c *Cache) State() (State, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.err
}

// Ready reports whether both the embedding provider and the corpus are loaded.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == StateReady && c.embedder.Loaded()
}

// Snapshot returns the loaded corpus, or a NotInitialized error naming op.
func (c *Cache) Snapshot(op string) (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch c.state {
	case StateReady:
		return c.snap, nil
	case StateFailed:
		return nil, apperr.Wrap(apperr.KindNotInitialized, op, c.err, "corpus load failed")
	default:
		return nil, apperr.NotInitialized(op, "corpus is still loading")
	}
}

func (c *Cache) load(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		c.mu.Lock()
		if err != nil {
			c.state = StateFailed
			c.err = err
		} else {
			c.state = StateReady
		}
		c.mu.Unlock()
		close(c.done)

		if err != nil {
			c.logger.Error("corpus load failed, service stays not ready", zap.Error(err))
			return
		}
		c.logger.Info("corpus ready", zap.Duration("elapsed", time.Since(start)))
	}()

	if err := c.embedder.Load(ctx); err != nil {
		return fmt.Errorf("failed to load embedding model: %w", err)
	}

	postings, err := LoadSources(c.opts.DataDir, c.logger)
	if err != nil {
		return err
	}

	snap := &Snapshot{Postings: postings, Model: c.embedder.Model(), LoadedAt: time.Now()}
	if len(postings) == 0 {
		c.logger.Warn("corpus is empty", zap.String("data_dir", c.opts.DataDir))
		c.publish(snap)
		return nil
	}

	if vectors, model, ok := c.tryCache(len(postings)); ok {
		snap.Vectors = vectors
		snap.Dimension = len(vectors[0])
		snap.Model = model
		snap.FromCache = true
		c.publish(snap)
		return nil
	}

	vectors, err := c.computeEmbeddings(ctx, postings)
	if err != nil {
		return err
	}
	snap.Vectors = vectors
	snap.Dimension = len(vectors[0])

	if c.opts.CacheFile != "" {
		if err := writeCache(c.opts.CacheFile, snap.Model, vectors); err != nil {
			c.logger.Warn("failed to persist embedding cache", zap.Error(err))
		} else {
			c.logger.Info("embedding cache written", zap.String("path", c.opts.CacheFile))
		}
	}
	c.publish(snap)
	return nil
}

func (c *Cache) publish(snap *Snapshot) {
	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()
}

func (c *Cache) tryCache(count int) ([][]float32, string, bool) {
	if c.opts.CacheFile == "" || c.opts.Regenerate {
		return nil, "", false
	}
	vectors, model, err := readCache(c.opts.CacheFile, count)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Info("no embedding cache, computing embeddings", zap.String("path", c.opts.CacheFile))
		} else {
			c.logger.Warn("embedding cache unusable, regenerating", zap.Error(err))
		}
		return nil, "", false
	}
	c.logger.Info("loaded embedding cache", zap.String("path", c.opts.CacheFile), zap.Int("vectors", len(vectors)))
	return vectors, model, true
}

// computeEmbeddings embeds every description in bounded-parallel batches.
// Output row i is the embedding of postings[i].
func (c *Cache) computeEmbeddings(ctx context.Context, postings []Posting) ([][]float32, error) {
	out := make([][]float32, len(postings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for start := 0; start < len(postings); start += c.opts.BatchSize {
		end := min(start+c.opts.BatchSize, len(postings))
		texts := make([]string, 0, end-start)
		for _, p := range postings[start:end] {
			texts = append(texts, p.Description)
		}
		g.Go(func() error {
			vectors, err := c.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("embedding postings [%d,%d): %w", start, end, err)
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embedding postings [%d,%d): got %d vectors", start, end, len(vectors))
			}
			copy(out[start:end], vectors)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(out[0])
	if dim == 0 {
		return nil, apperr.New(apperr.KindDimensionMismatch, "load corpus", "embedding provider returned empty vectors")
	}
	for i, v := range out {
		if len(v) != dim {
			return nil, apperr.New(apperr.KindDimensionMismatch, "load corpus",
				"posting %d has dimension %d, posting 0 has %d", i, len(v), dim)
		}
	}
	c.logger.Info("computed embeddings", zap.Int("postings", len(out)), zap.Int("dimension", dim))
	return out, nil
}
