package google

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// LoadOAuthConfig reads a Google "installed app" client secrets file and
// returns the OAuth2 configuration for the given scope. An empty scope
// falls back to DefaultScope.
func LoadOAuthConfig(clientSecretsFile, scope string) (*oauth2.Config, error) {
	data, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets %s: %w", clientSecretsFile, err)
	}
	return OAuthConfigFromJSON(data, scope)
}

// OAuthConfigFromJSON parses client secrets JSON. Multiple scopes may be
// given separated by spaces.
func OAuthConfigFromJSON(data []byte, scope string) (*oauth2.Config, error) {
	scopes := strings.Fields(scope)
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}
	return conf, nil
}
