// Package dependency wires core waypoint services using go.uber.org/dig.
package dependency

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/dig"

	"github.com/crystaldolphin/waypoint/internal/agent"
	"github.com/crystaldolphin/waypoint/internal/config"
	"github.com/crystaldolphin/waypoint/internal/httpapi"
	"github.com/crystaldolphin/waypoint/internal/location"
	"github.com/crystaldolphin/waypoint/internal/preferences"
	"github.com/crystaldolphin/waypoint/internal/providers"
	"github.com/crystaldolphin/waypoint/internal/schema"
	"github.com/crystaldolphin/waypoint/internal/session"
	"github.com/crystaldolphin/waypoint/internal/tools"
)

// ServiceContainer holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type ServiceContainer struct {
	provider schema.LLMProvider
	service  *agent.Service
	store    *session.Store
	prefs    *preferences.Store
	locator  *location.Resolver
	router   http.Handler
}

func (c *ServiceContainer) Provider() schema.LLMProvider    { return c.provider }
func (c *ServiceContainer) Service() *agent.Service         { return c.service }
func (c *ServiceContainer) Conversations() *session.Store   { return c.store }
func (c *ServiceContainer) Preferences() *preferences.Store { return c.prefs }
func (c *ServiceContainer) Locator() *location.Resolver     { return c.locator }
func (c *ServiceContainer) Router() http.Handler            { return c.router }

// LLMModel is a named string type so dig can distinguish it from plain
// strings when injecting the effective model name.
type LLMModel string

// ConversationTTL is how long an idle conversation is kept.
type ConversationTTL time.Duration

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*ServiceContainer, error) {
	return build(cfg, newProvider)
}

// NewWithProvider wires everything around an already constructed provider.
func NewWithProvider(cfg *config.Config, p schema.LLMProvider) (*ServiceContainer, error) {
	return build(cfg, func(*config.Config) (schema.LLMProvider, error) { return p, nil })
}

func build(cfg *config.Config, provider func(*config.Config) (schema.LLMProvider, error)) (*ServiceContainer, error) {
	d := dig.New()

	constructors := []any{
		func() *config.Config { return cfg },
		provider,
		resolveLLMModel,
		resolveTTL,
		newJinaClient,
		newMapsClient,
		newToolRegistry,
		newConversationStore,
		preferences.NewStore,
		newLocator,
		newLoop,
		newService,
		httpapi.NewRouter,
	}
	for _, c := range constructors {
		if err := d.Provide(c); err != nil {
			return nil, err
		}
	}

	var result *ServiceContainer
	err := d.Invoke(func(
		provider schema.LLMProvider,
		service *agent.Service,
		store *session.Store,
		prefs *preferences.Store,
		locator *location.Resolver,
		router http.Handler,
	) {
		result = &ServiceContainer{
			provider: provider,
			service:  service,
			store:    store,
			prefs:    prefs,
			locator:  locator,
			router:   router,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	model := cfg.Agent.Model
	result := cfg.MatchProvider(model)

	if result.Provider == nil {
		return nil, fmt.Errorf("model %q: %w, edit %s or set ANTHROPIC_API_KEY / OPENAI_API_KEY",
			model, providers.ErrNoAPIKey, config.ConfigPath())
	}

	return providers.New(providers.Params{
		APIKey:       result.Provider.APIKey,
		APIBase:      cfg.GetAPIBase(model),
		DefaultModel: model,
		ProviderName: result.Name,
	})
}

func resolveLLMModel(cfg *config.Config, p schema.LLMProvider) LLMModel {
	m := cfg.Agent.Model
	if m == "" {
		m = p.DefaultModel()
	}
	return LLMModel(m)
}

func resolveTTL(cfg *config.Config) (ConversationTTL, error) {
	d, err := cfg.Conversations.Duration()
	if err != nil {
		return 0, err
	}
	return ConversationTTL(d), nil
}

func newJinaClient(cfg *config.Config) *tools.JinaClient {
	return tools.NewJinaClient(cfg.Tools.Jina.APIKey)
}

func newMapsClient(cfg *config.Config) *tools.MapsClient {
	return tools.NewMapsClient(cfg.Tools.Maps.APIKey)
}

func newToolRegistry(cfg *config.Config, jina *tools.JinaClient, maps *tools.MapsClient) (*tools.Registry, error) {
	return tools.NewRegistryBuilder().
		WithBuiltins(jina, maps, cfg.Tools.Maps.Radius).
		Build()
}

func newConversationStore() *session.Store {
	return session.NewStore()
}

func newLocator(maps *tools.MapsClient) *location.Resolver {
	return location.NewResolver(maps)
}

func newLoop(cfg *config.Config, p schema.LLMProvider, m LLMModel) *agent.Loop {
	settings := schema.NewAgentSettings(
		string(m),
		cfg.Agent.MaxSteps,
		cfg.Agent.Temperature,
		cfg.Agent.MaxTokens,
	)
	return agent.NewLoop(p, settings)
}

func newService(
	loop *agent.Loop,
	registry *tools.Registry,
	store *session.Store,
	prefs *preferences.Store,
	locator *location.Resolver,
	ttl ConversationTTL,
) *agent.Service {
	return agent.NewService(loop, registry, store, prefs, locator, time.Duration(ttl))
}
