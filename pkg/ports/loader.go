package ports

// DefinitionLoader defines how the workspace retrieves diagram definitions.
// This allows the definition source (directory, memory) to be decoupled.
type DefinitionLoader interface {
	// GetDefinition retrieves the raw definition of a diagram by ID.
	// It returns the raw bytes (which the config parser will decode) or an error.
	GetDefinition(id string) ([]byte, error)

	// ListDefinitions returns the IDs of all definitions available.
	ListDefinitions() ([]string, error)
}
