package credentials

// Credentials represents the stored API credentials in credentials.toml.
type Credentials struct {
	Version   int                           `toml:"version"`
	Providers map[string]ProviderCredential `toml:"providers"`
}

// ProviderCredential holds the API key for a single provider.
type ProviderCredential struct {
	APIKey string `toml:"api_key"`
}

// Source names where an API key was found.
type Source string

const (
	SourceEnv         Source = "env"
	SourceCredentials Source = "credentials"
	SourceXCConfig    Source = "xcconfig"
)
