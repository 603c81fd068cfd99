// Package tokens maintains the registry of minted date-memory tokens. Token
// ids are assigned sequentially from zero and the full registry is persisted
// before a registration returns, so a restarted process continues the same
// sequence.
package tokens

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/tailored-agentic-units/persist/observability"
)

const (
	EventRegistered observability.EventType = "tokens.registered"
	EventLoaded     observability.EventType = "tokens.loaded"
)

// Store persists the registry document. *manager.Manager satisfies it.
type Store interface {
	LoadTokenRegistry(ctx context.Context, v any) (bool, error)
	SaveTokenRegistry(ctx context.Context, doc any) error
}

// Metadata describes one registered token.
type Metadata struct {
	TokenID      int      `json:"token_id"`
	ImageURL     string   `json:"image_url"`
	Prompt       string   `json:"prompt"`
	Participants []string `json:"participants"`
}

// document is the persisted form of the registry. Keys of Registry are
// decimal token ids.
type document struct {
	Registry       map[string]Metadata `json:"registry"`
	CurrentTokenID int                 `json:"current_token_id"`
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver overrides the default NoOpObserver.
func WithObserver(o observability.Observer) Option {
	return func(r *Registry) { r.observer = o }
}

// Registry assigns token ids and holds their metadata. It is safe for
// concurrent use within one process; registrations are serialized.
type Registry struct {
	store    Store
	observer observability.Observer

	mu     sync.Mutex
	tokens map[int]Metadata
	next   int
}

// New creates an empty Registry over store. Call Load to pick up a
// previously persisted registry.
func New(store Store, opts ...Option) *Registry {
	r := &Registry{
		store:    store,
		observer: observability.NoOpObserver{},
		tokens:   make(map[int]Metadata),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory registry with the persisted one. A registry
// that was never saved leaves the Registry empty.
func (r *Registry) Load(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *Registry) load(ctx context.Context) error {
	var doc document
	found, err := r.store.LoadTokenRegistry(ctx, &doc)
	if err != nil {
		return fmt.Errorf("failed to load token registry: %w", err)
	}
	if !found {
		return nil
	}

	tokens := make(map[int]Metadata, len(doc.Registry))
	next := doc.CurrentTokenID
	for key, meta := range doc.Registry {
		id, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("failed to load token registry: invalid token id %q", key)
		}
		tokens[id] = meta
		if id >= next {
			next = id + 1
		}
	}
	r.tokens = tokens
	r.next = next

	observability.Emit(ctx, r.observer, EventLoaded, observability.LevelVerbose, "tokens.Load", map[string]any{
		"tokens":  len(tokens),
		"next_id": next,
	})
	return nil
}

// Register assigns the next token id and persists the registry before
// returning. If persisting fails the registration is undone and the id is
// handed to the next caller.
func (r *Registry) Register(ctx context.Context, imageURL, prompt string, participants []string) (Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	meta := Metadata{
		TokenID:      r.next,
		ImageURL:     imageURL,
		Prompt:       prompt,
		Participants: append([]string{}, participants...),
	}
	r.tokens[meta.TokenID] = meta
	r.next++

	if err := r.store.SaveTokenRegistry(ctx, r.document()); err != nil {
		delete(r.tokens, meta.TokenID)
		r.next--
		return Metadata{}, fmt.Errorf("failed to register token: %w", err)
	}

	observability.Emit(ctx, r.observer, EventRegistered, observability.LevelInfo, "tokens.Register", map[string]any{
		"token_id":     meta.TokenID,
		"participants": len(meta.Participants),
	})
	return meta, nil
}

func (r *Registry) document() document {
	doc := document{
		Registry:       make(map[string]Metadata, len(r.tokens)),
		CurrentTokenID: r.next,
	}
	for id, meta := range r.tokens {
		doc.Registry[strconv.Itoa(id)] = meta
	}
	return doc
}

// Get returns the metadata of a token held in memory.
func (r *Registry) Get(id int) (Metadata, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	meta, ok := r.tokens[id]
	return meta, ok
}

// List returns every token in id order.
func (r *Registry) List() []Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Metadata, 0, len(r.tokens))
	for _, meta := range r.tokens {
		out = append(out, meta)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TokenID < out[j].TokenID })
	return out
}

// Next returns the id the next registration will receive.
func (r *Registry) Next() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.next
}
