package tool

// JinaConfig configures the Jina search and reader endpoints.
// Without a key, ReadWebsite fetches pages directly.
type JinaConfig struct {
	APIKey string `json:"apiKey" yaml:"apiKey"`
}

func DefaultJinaConfig() JinaConfig {
	return JinaConfig{}
}
