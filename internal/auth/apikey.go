// Package auth provides a simple API key check for the websocket endpoint
package auth

// APIKeyAuth validates API keys. When configured with no keys at all the
// check is disabled and every request passes, which is the default for
// local play.
type APIKeyAuth struct {
	validKeys map[string]struct{}
}

// NewAPIKeyAuth creates a new API key authenticator
func NewAPIKeyAuth(keys []string) *APIKeyAuth {
	validKeys := make(map[string]struct{})
	for _, key := range keys {
		if key != "" {
			validKeys[key] = struct{}{}
		}
	}

	return &APIKeyAuth{
		validKeys: validKeys,
	}
}

// AddKey adds a new valid API key
func (a *APIKeyAuth) AddKey(key string) {
	a.validKeys[key] = struct{}{}
}

// RemoveKey removes a valid API key
func (a *APIKeyAuth) RemoveKey(key string) {
	delete(a.validKeys, key)
}

// IsValidKey checks if a key is valid
func (a *APIKeyAuth) IsValidKey(key string) bool {
	if len(a.validKeys) == 0 {
		return true
	}
	_, valid := a.validKeys[key]
	return valid
}
