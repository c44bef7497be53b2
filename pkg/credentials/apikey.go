package credentials

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/papercomputeco/rtcheck/pkg/utils"
)

// DefaultXCConfigPath is the Xcode secrets file checked when neither the
// environment nor credentials.toml carries a key. Relative to the working
// directory.
const DefaultXCConfigPath = "Moment/Moment/Config/Secrets.local.xcconfig"

// ErrAPIKeyNotFound is returned when no source yields an API key.
var ErrAPIKeyNotFound = errors.New("OPENAI_API_KEY not found. Set env var or Secrets.local.xcconfig")

var xcconfigKeyPattern = regexp.MustCompile(`OPENAI_API_KEY\s*=\s*(.+)`)

// KeyStore is the subset of Manager used for key resolution.
type KeyStore interface {
	GetKey(provider string) (string, error)
}

// Resolver finds the API key for a check. Sources are consulted in order:
// environment, credentials store, xcconfig file. The first non-empty value
// wins.
type Resolver struct {
	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	// Store is optional.
	Store KeyStore

	// XCConfigPath defaults to DefaultXCConfigPath. Set to "-" to skip the
	// file lookup.
	XCConfigPath string
}

// Resolve returns the key and the source it came from, or ErrAPIKeyNotFound.
func (r *Resolver) Resolve() (string, Source, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	envVar := EnvVarForProvider(ProviderOpenAI)
	if key := strings.TrimSpace(getenv(envVar)); key != "" {
		return key, SourceEnv, nil
	}

	if r.Store != nil {
		key, err := r.Store.GetKey(ProviderOpenAI)
		if err != nil {
			return "", "", fmt.Errorf("reading stored credentials: %w", err)
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, SourceCredentials, nil
		}
	}

	path := r.XCConfigPath
	if path == "" {
		path = DefaultXCConfigPath
	}
	if path != "-" {
		key, err := ReadXCConfigKey(path)
		if err != nil {
			return "", "", err
		}
		if key != "" {
			return key, SourceXCConfig, nil
		}
	}

	return "", "", ErrAPIKeyNotFound
}

// ReadXCConfigKey extracts OPENAI_API_KEY from an xcconfig file. A missing
// file is not an error and yields an empty key.
func ReadXCConfigKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	return ParseXCConfigKey(string(data)), nil
}

// ParseXCConfigKey returns the trimmed value of the first OPENAI_API_KEY
// assignment in text, or an empty string.
func ParseXCConfigKey(text string) string {
	match := xcconfigKeyPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// MaskKey returns a display form of key that keeps only its first seven
// characters.
func MaskKey(key string) string {
	return utils.MaskSecret(key, 7)
}
