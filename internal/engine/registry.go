package engine

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/pders01/labtrail/internal/config"
	"github.com/pders01/labtrail/internal/gitrepo"
)

// GatewayFactory builds a gateway for a project directory. The default uses
// the git executable; tests swap in the in-memory backend.
type GatewayFactory func(path string) gitrepo.Gateway

// Registry owns one live Service per project path: created on open,
// disposed on close. The working directory and its repository store are
// exclusive to that one instance, so no cross-project locking exists.
type Registry struct {
	newGateway GatewayFactory

	mu       sync.Mutex
	services map[string]*Service
}

// NewRegistry creates a registry backed by the git executable.
func NewRegistry() *Registry {
	return NewRegistryWith(func(path string) gitrepo.Gateway {
		return gitrepo.NewGitGateway(path)
	})
}

// NewRegistryWith creates a registry with a custom gateway factory.
func NewRegistryWith(factory GatewayFactory) *Registry {
	return &Registry{
		newGateway: factory,
		services:   make(map[string]*Service),
	}
}

// Open returns the live service for a project, creating it lazily. The
// service's configuration comes from the project's persisted settings,
// falling back to the global defaults.
func (r *Registry) Open(path string) (*Service, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid project path %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if service, ok := r.services[abs]; ok {
		return service, nil
	}

	service := NewService(abs, r.newGateway(abs), config.LoadProjectConfig(abs))
	r.services[abs] = service
	return service, nil
}

// Get returns the live service for a path without creating one.
func (r *Registry) Get(path string) (*Service, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	service, ok := r.services[abs]
	return service, ok
}

// Close disposes the service for a path. No-op when the project isn't open.
func (r *Registry) Close(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}

	r.mu.Lock()
	service, ok := r.services[abs]
	delete(r.services, abs)
	r.mu.Unlock()

	if ok {
		service.Close()
	}
}

// CloseAll disposes every open service.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	services := make([]*Service, 0, len(r.services))
	for _, service := range r.services {
		services = append(services, service)
	}
	r.services = make(map[string]*Service)
	r.mu.Unlock()

	for _, service := range services {
		service.Close()
	}
}

// Len returns the number of open projects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.services)
}
