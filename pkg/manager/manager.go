package manager

import (
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"transcribe-service/pkg/config"
)

// Resource is anything with an open/close lifecycle (db pools, brokers, caches).
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin creates a named resource for registration during init().
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

// Component is a long-running unit (consumer, worker, registrar) started after
// resources and services are ready.
type Component interface {
	Start() error
	Stop() error
	GetName() string
}

// ComponentPlugin creates a component from the shared dependency container.
type ComponentPlugin interface {
	Name() string
	MustCreateComponent(deps *Dependencies) Component
}

// RouteRegistrar attaches HTTP routes to the shared gin engine.
type RouteRegistrar func(router *gin.Engine, deps *Dependencies)

// Dependencies is the assembly-time container handed to components and routes.
type Dependencies struct {
	DB                   *gorm.DB
	Config               *config.Config
	TranscribeAppService interface{}
}

type registry struct {
	mu               sync.Mutex
	resourcePlugins  []ResourcePlugin
	resources        []Resource
	componentPlugins []ComponentPlugin
	components       []Component
	routeRegistrars  []RouteRegistrar
	deps             *Dependencies
}

var defaultRegistry = &registry{}

// RegisterResourcePlugin records a resource plugin; called from package init().
func RegisterResourcePlugin(p ResourcePlugin) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.resourcePlugins = append(defaultRegistry.resourcePlugins, p)
}

// RegisterComponentPlugin records a component plugin; called from package init().
func RegisterComponentPlugin(p ComponentPlugin) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.componentPlugins = append(defaultRegistry.componentPlugins, p)
}

// RegisterRoutes records a route registrar; called from package init().
func RegisterRoutes(r RouteRegistrar) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.routeRegistrars = append(defaultRegistry.routeRegistrars, r)
}

// MustInitResources opens every registered resource, panicking on failure.
func MustInitResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, p := range defaultRegistry.resourcePlugins {
		res := p.MustCreateResource()
		res.MustOpen()
		defaultRegistry.resources = append(defaultRegistry.resources, res)
	}
}

// CloseResources closes resources in reverse open order.
func CloseResources() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for i := len(defaultRegistry.resources) - 1; i >= 0; i-- {
		defaultRegistry.resources[i].Close()
	}
	defaultRegistry.resources = nil
}

// MustInitComponents builds and starts every registered component.
func MustInitComponents(deps *Dependencies) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.deps = deps
	for _, p := range defaultRegistry.componentPlugins {
		c := p.MustCreateComponent(deps)
		if err := c.Start(); err != nil {
			panic("failed to start component " + p.Name() + ": " + err.Error())
		}
		defaultRegistry.components = append(defaultRegistry.components, c)
	}
}

// RegisterAllRoutes runs every recorded route registrar against the engine.
func RegisterAllRoutes(router *gin.Engine) {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for _, r := range defaultRegistry.routeRegistrars {
		r(router, defaultRegistry.deps)
	}
}

// Shutdown stops components in reverse start order.
func Shutdown() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	for i := len(defaultRegistry.components) - 1; i >= 0; i-- {
		_ = defaultRegistry.components[i].Stop()
	}
	defaultRegistry.components = nil
}
