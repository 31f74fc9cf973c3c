package webex

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// TokenEnvVar is the environment variable checked before prompting.
const TokenEnvVar = "WEBEX_TEAMS_ACCESS_TOKEN"

// TokenPromptFunc asks the operator for an access token.
type TokenPromptFunc func() (string, error)

// ResolveToken returns the Webex access token from the environment, falling
// back to the injected prompt so the data layer stays free of interactive
// input.
func ResolveToken(prompt TokenPromptFunc) (string, error) {
	if tok := strings.TrimSpace(os.Getenv(TokenEnvVar)); tok != "" {
		return tok, nil
	}
	if prompt == nil {
		return "", fmt.Errorf("no access token: set %s", TokenEnvVar)
	}
	tok, err := prompt()
	if err != nil {
		return "", fmt.Errorf("prompt token: %w", err)
	}
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return "", errors.New("access token cannot be empty")
	}
	return tok, nil
}

// OrgIDFromToken extracts the organization id embedded in a Webex access
// token as its trailing underscore-delimited UUID segment.
func OrgIDFromToken(token string) (string, error) {
	idx := strings.LastIndex(token, "_")
	if idx < 0 {
		return "", errors.New("invalid access token: no organization id segment")
	}
	orgID := token[idx+1:]
	if _, err := uuid.Parse(orgID); err != nil {
		return "", fmt.Errorf("invalid organization id %q: %w", orgID, err)
	}
	return orgID, nil
}
