package models

// JSONSchema describes the configuration an action type accepts. Registered
// action configs are validated against their schema before instantiation.
type JSONSchema struct {
	Type        string               `json:"type"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

// Property is a single JSON Schema property.
type Property struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Enum        []any                `json:"enum,omitempty"`
	Default     any                  `json:"default,omitempty"`
	Format      string               `json:"format,omitempty"`
	Minimum     *float64             `json:"minimum,omitempty"`
	Items       *Property            `json:"items,omitempty"`
	Properties  map[string]*Property `json:"properties,omitempty"`
	Required    []string             `json:"required,omitempty"`
}

// RegisteredAction describes an action type exposed by the registry, used by
// the API to list what workflow editors may configure.
type RegisteredAction struct {
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Schema      *JSONSchema `json:"schema"`
}
