package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/mdonmez/autoso/internal/actuator"
	"github.com/mdonmez/autoso/internal/asr"
	"github.com/mdonmez/autoso/internal/embed"
	"github.com/mdonmez/autoso/internal/vad"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions for each
// pluggable pipeline stage. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	embed    map[string]func(EmbeddingConfig) (embed.Provider, error)
	asr      map[string]func(ASRConfig) (asr.Provider, error)
	vad      map[string]func(AudioConfig) (vad.Engine, error)
	actuator map[string]func(ActuatorConfig) (actuator.Actuator, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		embed:    make(map[string]func(EmbeddingConfig) (embed.Provider, error)),
		asr:      make(map[string]func(ASRConfig) (asr.Provider, error)),
		vad:      make(map[string]func(AudioConfig) (vad.Engine, error)),
		actuator: make(map[string]func(ActuatorConfig) (actuator.Actuator, error)),
	}
}

// RegisterEmbedding registers an embedding provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterEmbedding(name string, factory func(EmbeddingConfig) (embed.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embed[name] = factory
}

// RegisterASR registers an ASR provider factory under the ASREngine name.
func (r *Registry) RegisterASR(name ASREngine, factory func(ASRConfig) (asr.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.asr[string(name)] = factory
}

// RegisterVAD registers a VAD engine factory under the VADEngine name.
func (r *Registry) RegisterVAD(name VADEngine, factory func(AudioConfig) (vad.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vad[string(name)] = factory
}

// RegisterActuator registers an actuator factory under the ActuatorKind
// name.
func (r *Registry) RegisterActuator(kind ActuatorKind, factory func(ActuatorConfig) (actuator.Actuator, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actuator[string(kind)] = factory
}

// CreateEmbedding instantiates an embedding provider using the factory
// registered under cfg.Name.
func (r *Registry) CreateEmbedding(cfg EmbeddingConfig) (embed.Provider, error) {
	r.mu.RLock()
	factory, ok := r.embed[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embedding/%q", ErrProviderNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreateASR instantiates an ASR provider using the factory registered
// under cfg.Engine.
func (r *Registry) CreateASR(cfg ASRConfig) (asr.Provider, error) {
	r.mu.RLock()
	factory, ok := r.asr[string(cfg.Engine)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: asr/%q", ErrProviderNotRegistered, cfg.Engine)
	}
	return factory(cfg)
}

// CreateVAD instantiates a VAD engine using the factory registered under
// cfg.VAD.
func (r *Registry) CreateVAD(cfg AudioConfig) (vad.Engine, error) {
	r.mu.RLock()
	factory, ok := r.vad[string(cfg.VAD)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: vad/%q", ErrProviderNotRegistered, cfg.VAD)
	}
	return factory(cfg)
}

// CreateActuator instantiates an Actuator using the factory registered
// under cfg.Kind.
func (r *Registry) CreateActuator(cfg ActuatorConfig) (actuator.Actuator, error) {
	r.mu.RLock()
	factory, ok := r.actuator[string(cfg.Kind)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: actuator/%q", ErrProviderNotRegistered, cfg.Kind)
	}
	return factory(cfg)
}
