package providers

import "strings"

// ProviderSpec is the metadata record for one LLM provider.
type ProviderSpec struct {
	Name           string   // config field name, e.g. "anthropic"
	Keywords       []string // model-name keywords for matching (lowercase)
	EnvKey         string   // env var for the API key
	DisplayName    string   // shown in `waypoint status`
	DefaultModel   string   // used when the config names no model
	DefaultAPIBase string   // informational; the SDKs carry their own default
}

// Label returns the display name, defaulting to Title-cased Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToTitle(s.Name[:1]) + s.Name[1:]
}

// PROVIDERS is the registry. Order = match priority.
var PROVIDERS = []ProviderSpec{
	{
		Name:           "anthropic",
		Keywords:       []string{"anthropic", "claude"},
		EnvKey:         "ANTHROPIC_API_KEY",
		DisplayName:    "Anthropic",
		DefaultModel:   "claude-3-5-sonnet-20240620",
		DefaultAPIBase: "https://api.anthropic.com",
	},
	{
		Name:           "openai",
		Keywords:       []string{"openai", "gpt", "o1", "o3", "o4"},
		EnvKey:         "OPENAI_API_KEY",
		DisplayName:    "OpenAI",
		DefaultModel:   "gpt-4o",
		DefaultAPIBase: "https://api.openai.com/v1",
	},
}

// FindByModel matches a provider by explicit "name/" prefix first and by
// model-name keyword second (case-insensitive).
func FindByModel(model string) *ProviderSpec {
	modelLower := strings.ToLower(model)
	modelNorm := strings.ReplaceAll(modelLower, "-", "_")
	modelPrefix, _, found := strings.Cut(modelLower, "/")

	if found {
		if spec := FindByName(strings.ReplaceAll(modelPrefix, "-", "_")); spec != nil {
			return spec
		}
	}

	for i := range PROVIDERS {
		spec := &PROVIDERS[i]
		for _, kw := range spec.Keywords {
			kwNorm := strings.ReplaceAll(kw, "-", "_")
			if strings.HasPrefix(modelLower, kw) || (len(kw) > 2 && strings.Contains(modelNorm, kwNorm)) {
				return spec
			}
		}
	}
	return nil
}

// FindByName returns the ProviderSpec whose Name equals name.
func FindByName(name string) *ProviderSpec {
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}
