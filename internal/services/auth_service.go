package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/authorizerdev/authorizer-go"

	"github.com/localnerve/tabledit/internal/config"
	"github.com/localnerve/tabledit/internal/utils"
)

var (
	authClient *authorizer.AuthorizerClient
	authMu     sync.Mutex
)

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	authMu.Lock()
	defer authMu.Unlock()
	return authClient != nil
}

// InitAuthorizer initializes the Authorizer client. Safe to call on every
// request; a failed init is retried on the next call.
func InitAuthorizer(cfg *config.Config, requestProtocol, requestHost string) error {
	authMu.Lock()
	defer authMu.Unlock()

	if authClient != nil {
		return nil
	}

	// Ping the Authorizer service first
	if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
		return fmt.Errorf("authorizer ping failed: %w", err)
	}

	redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
	log.Printf("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
		cfg.AuthzURL, cfg.AuthzClientID, redirectURL)

	client, err := authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create authorizer client: %w", err)
	}
	authClient = client

	return nil
}

// ValidateSession validates a session cookie for the given roles
func ValidateSession(cookie string, roles []string) (map[string]interface{}, error) {
	authMu.Lock()
	client := authClient
	authMu.Unlock()
	if client == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	// Convert roles to []*string
	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	// Validate session using the authorizer-go SDK
	res, err := client.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}

	// Check if session is valid
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}

	// Flatten the SDK user through its json tags so downstream code reads
	// the wire field names (id, email, email_verified)
	raw, err := json.Marshal(res.User)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session user: %w", err)
	}
	var user map[string]interface{}
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("failed to decode session user: %w", err)
	}

	return map[string]interface{}{
		"is_valid": res.IsValid,
		"user":     user,
	}, nil
}
