package tool

// MapsConfig configures the Google Maps backed tools and location lookup.
type MapsConfig struct {
	APIKey string `json:"apiKey" yaml:"apiKey"`
	Radius int    `json:"radius" yaml:"radius"` // metres, for nearby search
}

func DefaultMapsConfig() MapsConfig {
	return MapsConfig{Radius: 100}
}
