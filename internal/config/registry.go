package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/meetplot/meetplot/pkg/provider/embeddings"
	"github.com/meetplot/meetplot/pkg/provider/ner"
	"github.com/meetplot/meetplot/pkg/provider/sentiment"
	"github.com/meetplot/meetplot/pkg/provider/topics"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	sentiment  map[string]func(ProviderEntry) (sentiment.Provider, error)
	ner        map[string]func(ProviderEntry) (ner.Provider, error)
	topics     map[string]func(ProviderEntry) (topics.Provider, error)
	embeddings map[string]func(ProviderEntry) (embeddings.Provider, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		sentiment:  make(map[string]func(ProviderEntry) (sentiment.Provider, error)),
		ner:        make(map[string]func(ProviderEntry) (ner.Provider, error)),
		topics:     make(map[string]func(ProviderEntry) (topics.Provider, error)),
		embeddings: make(map[string]func(ProviderEntry) (embeddings.Provider, error)),
	}
}

// RegisterSentiment registers a sentiment provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSentiment(name string, factory func(ProviderEntry) (sentiment.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sentiment[name] = factory
}

// RegisterNER registers a named-entity provider factory under name.
func (r *Registry) RegisterNER(name string, factory func(ProviderEntry) (ner.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ner[name] = factory
}

// RegisterTopics registers a topic-keyword provider factory under name.
func (r *Registry) RegisterTopics(name string, factory func(ProviderEntry) (topics.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics[name] = factory
}

// RegisterEmbeddings registers an embeddings provider factory under name.
func (r *Registry) RegisterEmbeddings(name string, factory func(ProviderEntry) (embeddings.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[name] = factory
}

// CreateSentiment instantiates a sentiment provider using the factory
// registered under entry.Name. Returns [ErrProviderNotRegistered] if no
// factory has been registered for that name.
func (r *Registry) CreateSentiment(entry ProviderEntry) (sentiment.Provider, error) {
	r.mu.RLock()
	factory, ok := r.sentiment[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: sentiment/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateNER instantiates a named-entity provider using the factory registered
// under entry.Name.
func (r *Registry) CreateNER(entry ProviderEntry) (ner.Provider, error) {
	r.mu.RLock()
	factory, ok := r.ner[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: ner/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateTopics instantiates a topic-keyword provider using the factory
// registered under entry.Name.
func (r *Registry) CreateTopics(entry ProviderEntry) (topics.Provider, error) {
	r.mu.RLock()
	factory, ok := r.topics[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: topics/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmbeddings instantiates an embeddings provider using the factory
// registered under entry.Name.
func (r *Registry) CreateEmbeddings(entry ProviderEntry) (embeddings.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embeddings[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embeddings/%q", ErrProviderNotRegistered, entry.Name)
	}
	return factory(entry)
}
