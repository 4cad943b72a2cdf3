package config

// Dictionary maps human readable labels to their replacement.
type Dictionary struct {
	Language string            `json:"language,omitempty"`
	Labels   map[string]string `json:"labels"`
}
