package llm

// Route names the provider and model a task type resolves to.
type Route struct {
	Provider string
	Model    string
}

// Router maps task types onto the providers that were actually configured.
// Preferences fall back to the default provider, and the default falls back
// to whatever exists, so a single-key deployment still routes everything.
type Router struct {
	routes map[TaskType]Route
	def    Route
}

// taskPreferences lists the first-choice provider per task type.
var taskPreferences = map[TaskType]string{
	TaskFastGeneration:   ProviderOpenAI,
	TaskStructuredOutput: ProviderOpenAI,
	TaskComplexReasoning: ProviderAnthropic,
	TaskHighQuality:      ProviderAnthropic,
	TaskCreative:         ProviderAnthropic,
	TaskRefinement:       ProviderAnthropic,
	TaskAnalysis:         "", // default provider
	TaskDrafting:         "",
}

// NewRouter builds the routing table for the available providers.
func NewRouter(defaultProvider string, providers map[string]*Provider) *Router {
	def := resolveProvider(defaultProvider, providers)

	r := &Router{
		routes: make(map[TaskType]Route, len(taskPreferences)),
		def:    Route{Provider: def.Name, Model: def.Model},
	}

	for task, preferred := range taskPreferences {
		p := def
		if preferred != "" {
			if candidate, ok := providers[preferred]; ok {
				p = candidate
			}
		}
		r.routes[task] = Route{Provider: p.Name, Model: p.Model}
	}

	return r
}

// Resolve returns the route for a task type. Unknown task types use the
// default route.
func (r *Router) Resolve(task TaskType) Route {
	if route, ok := r.routes[task]; ok {
		return route
	}
	return r.def
}

// Fallback is the route error messages name when a model is rejected.
func (r *Router) Fallback() Route {
	return r.def
}

// resolveProvider picks the named provider, or any configured one when the
// name is absent.
func resolveProvider(name string, providers map[string]*Provider) *Provider {
	if p, ok := providers[name]; ok {
		return p
	}
	// Deterministic order keeps behavior stable across restarts.
	for _, candidate := range []string{ProviderOpenAI, ProviderAnthropic, ProviderOllama} {
		if p, ok := providers[candidate]; ok {
			return p
		}
	}
	for _, p := range providers {
		return p
	}
	return &Provider{Name: name}
}
