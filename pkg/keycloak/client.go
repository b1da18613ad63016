package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/b1id/id-portal/pkg/errors"
	"github.com/xlzd/gotp"
)

// tokenSafetyMargin is subtracted from the provider-declared token lifetime so a
// cached token is treated as expired slightly before the provider invalidates it.
// This avoids racing expiry during an in-flight admin call.
const tokenSafetyMargin = 60 * time.Second

// AdminClient performs administrative operations against one Keycloak realm,
// authenticating as the realm's privileged service client. It caches the admin
// access token and refreshes it transparently before each operation.
type AdminClient struct {
	config     AdminConfig
	httpClient *http.Client
	totpIssuer string

	// token cache, guarded by mu; at most one refresh is in flight at a time
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// Option is a function that configures an AdminClient
type Option func(*AdminClient)

// WithHTTPClient sets the HTTP client used for all provider calls
func WithHTTPClient(client *http.Client) Option {
	return func(c *AdminClient) {
		c.httpClient = client
	}
}

// WithTOTPIssuer sets the issuer name embedded in TOTP provisioning URIs
func WithTOTPIssuer(issuer string) Option {
	return func(c *AdminClient) {
		c.totpIssuer = issuer
	}
}

// NewAdminClient creates an admin client for one realm
func NewAdminClient(config AdminConfig, opts ...Option) *AdminClient {
	client := &AdminClient{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		totpIssuer: "id-portal",
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Realm returns the realm this client administers
func (c *AdminClient) Realm() string {
	return c.config.Realm
}

// ensureAdminToken returns a bearer token usable for the next admin request.
// A cached token still inside its safety margin is returned without a network
// call. Otherwise a client-credentials exchange is performed; concurrent callers
// wait for the in-flight refresh and reuse its result.
func (c *AdminClient) ensureAdminToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", c.config.ClientID)
	data.Set("client_secret", c.config.ClientSecret)

	tokenURL := fmt.Sprintf("%s/realms/master/protocol/openid-connect/token", c.config.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeAuthBackendUnavailable, "failed to create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	now := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeAuthBackendUnavailable, "admin token exchange failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeAuthBackendUnavailable, "failed to read token response")
	}

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.ErrCodeAuthBackendUnavailable,
			"admin token exchange failed with status %d", resp.StatusCode).
			WithDetail("realm", c.config.Realm).
			WithDetail("status", resp.StatusCode)
	}

	var token tokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeAuthBackendUnavailable, "malformed token response")
	}
	if token.AccessToken == "" {
		return "", errors.New(errors.ErrCodeAuthBackendUnavailable, "token response missing access_token")
	}

	c.accessToken = token.AccessToken
	c.tokenExpiry = now.Add(time.Duration(token.ExpiresIn)*time.Second - tokenSafetyMargin)
	slog.Debug("Refreshed admin token", "realm", c.config.Realm, "expires_in", token.ExpiresIn)

	return c.accessToken, nil
}

// adminURL builds an admin REST URL under this client's realm
func (c *AdminClient) adminURL(format string, args ...interface{}) string {
	path := fmt.Sprintf(format, args...)
	return fmt.Sprintf("%s/admin/realms/%s%s", c.config.BaseURL, c.config.Realm, path)
}

// doAdmin performs one authenticated admin request. A JSON body is sent when
// body is non-nil, and the response is decoded into out when out is non-nil.
// Transport errors and non-2xx responses are wrapped as ProviderRequestFailed.
func (c *AdminClient) doAdmin(ctx context.Context, operation, method, rawURL string, body interface{}, out interface{}) error {
	token, err := c.ensureAdminToken(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrapf(err, errors.ErrCodeInternal, "failed to encode %s request", operation)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reqBody)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeInternal, "failed to create %s request", operation)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		providerErr := errors.Wrapf(err, errors.ErrCodeProviderRequestFailed, "provider request failed: %s", operation).
			WithDetail("operation", operation)
		if stderrors.Is(err, context.DeadlineExceeded) {
			providerErr.WithDetail("detail", "timeout")
		}
		return providerErr
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeProviderRequestFailed, "failed to read %s response", operation).
			WithDetail("operation", operation)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return errors.Newf(errors.ErrCodeProviderRequestFailed, "provider request failed: %s", operation).
			WithDetail("operation", operation).
			WithDetail("status", resp.StatusCode).
			WithDetail("detail", strings.TrimSpace(string(respBody)))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return errors.Wrapf(err, errors.ErrCodeProviderRequestFailed, "malformed %s response", operation).
				WithDetail("operation", operation)
		}
	}

	return nil
}

// FindUserByUsername looks up a user by exact username. It returns (nil, nil)
// when no user matches; zero matches is not an error at this layer.
func (c *AdminClient) FindUserByUsername(ctx context.Context, username string) (*User, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("exact", "true")

	var users []User
	searchURL := c.adminURL("/users") + "?" + query.Encode()
	if err := c.doAdmin(ctx, "find-user", http.MethodGet, searchURL, nil, &users); err != nil {
		return nil, err
	}

	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

// ChangeUserPassword resets the user's password credential. When temporary is
// true the provider marks the credential as requiring change on next login.
func (c *AdminClient) ChangeUserPassword(ctx context.Context, userID, newPassword string, temporary bool) error {
	body := map[string]interface{}{
		"type":      CredentialTypePassword,
		"value":     newPassword,
		"temporary": temporary,
	}

	err := c.doAdmin(ctx, "reset-password", http.MethodPut, c.adminURL("/users/%s/reset-password", userID), body, nil)
	if err != nil {
		// a failed token exchange is a backend outage, not a credential
		// failure; keep the more specific code
		if errors.IsCode(err, errors.ErrCodeAuthBackendUnavailable) {
			return err
		}
		return errors.Wrap(err, errors.ErrCodeCredentialUpdateFailed, "failed to change user password").
			WithDetail("user_id", userID)
	}

	slog.Info("Changed user password", "realm", c.config.Realm, "user_id", userID, "temporary", temporary)
	return nil
}

// UnlockUserAccount clears an account lockout. It revokes all active sessions
// and resets the brute-force failed-login counters. Both sub-steps are always
// attempted; the operation is not atomic, and a session revocation that
// succeeded is not rolled back when the counter reset fails.
func (c *AdminClient) UnlockUserAccount(ctx context.Context, userID string) error {
	var failed []string

	logoutErr := c.doAdmin(ctx, "revoke-sessions", http.MethodDelete, c.adminURL("/users/%s/logout", userID), nil, nil)
	if logoutErr != nil {
		failed = append(failed, "revoke-sessions")
	}

	clearErr := c.doAdmin(ctx, "clear-brute-force", http.MethodDelete, c.adminURL("/attack-detection/brute-force/users/%s", userID), nil, nil)
	if clearErr != nil {
		failed = append(failed, "clear-brute-force")
	}

	if len(failed) > 0 {
		joined := stderrors.Join(logoutErr, clearErr)
		code := errors.ErrCodeProviderRequestFailed
		if errors.IsCode(joined, errors.ErrCodeAuthBackendUnavailable) {
			code = errors.ErrCodeAuthBackendUnavailable
		}
		return errors.Wrap(joined, code, "failed to unlock user account").
			WithDetail("user_id", userID).
			WithDetail("failed_steps", failed)
	}

	slog.Info("Unlocked user account", "realm", c.config.Realm, "user_id", userID)
	return nil
}

// GetUserAuthenticationSettings fetches the user's credential list and
// federated-identity list in parallel and returns both as one snapshot.
// If either fetch fails the whole call fails; no partial snapshot is returned.
func (c *AdminClient) GetUserAuthenticationSettings(ctx context.Context, userID string) (*AuthenticationSettings, error) {
	var (
		credentials []Credential
		identities  []FederatedIdentity
		credErr     error
		fedErr      error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		credErr = c.doAdmin(ctx, "list-credentials", http.MethodGet, c.adminURL("/users/%s/credentials", userID), nil, &credentials)
	}()
	go func() {
		defer wg.Done()
		fedErr = c.doAdmin(ctx, "list-federated-identity", http.MethodGet, c.adminURL("/users/%s/federated-identity", userID), nil, &identities)
	}()
	wg.Wait()

	if credErr != nil {
		return nil, credErr
	}
	if fedErr != nil {
		return nil, fedErr
	}

	return &AuthenticationSettings{
		Credentials:         credentials,
		FederatedIdentities: identities,
	}, nil
}

// DeleteCredential removes one credential from a user
func (c *AdminClient) DeleteCredential(ctx context.Context, userID, credentialID string) error {
	return c.doAdmin(ctx, "delete-credential", http.MethodDelete, c.adminURL("/users/%s/credentials/%s", userID, credentialID), nil, nil)
}

// SendRequiredActionsEmail triggers the provider's required-actions email for
// the user, e.g. []string{"UPDATE_PASSWORD"} for a password-reset email.
func (c *AdminClient) SendRequiredActionsEmail(ctx context.Context, userID string, actions []string) error {
	if len(actions) == 0 {
		return errors.InvalidInput("actions", "at least one required action must be given")
	}
	return c.doAdmin(ctx, "execute-actions-email", http.MethodPut, c.adminURL("/users/%s/execute-actions-email", userID), actions, nil)
}

// ConfigureUserMFA rotates the user's TOTP enrollment: existing TOTP
// credentials are enumerated and deleted, a fresh shared secret is generated,
// and a new TOTP credential is registered. The net effect is exactly one active
// TOTP credential with a secret not previously issued.
//
// Stale-credential deletion is best-effort per credential: when one delete
// fails the remaining ones are still attempted, then the overall operation
// fails reporting which deletions failed. MFA types other than "totp" are
// rejected with UnsupportedMFAType.
func (c *AdminClient) ConfigureUserMFA(ctx context.Context, userID, mfaType string) (*TOTPEnrollment, error) {
	if mfaType != MFATypeTOTP {
		return nil, errors.Newf(errors.ErrCodeUnsupportedMFAType, "unsupported MFA type: %s", mfaType)
	}

	var credentials []Credential
	if err := c.doAdmin(ctx, "list-credentials", http.MethodGet, c.adminURL("/users/%s/credentials", userID), nil, &credentials); err != nil {
		return nil, err
	}

	var failedDeletes []string
	for _, cred := range credentials {
		if cred.Type != CredentialTypeTOTP {
			continue
		}
		if err := c.DeleteCredential(ctx, userID, cred.ID); err != nil {
			slog.Error("Failed to delete stale TOTP credential", "realm", c.config.Realm, "user_id", userID, "credential_id", cred.ID, "err", err)
			failedDeletes = append(failedDeletes, cred.ID)
		}
	}
	if len(failedDeletes) > 0 {
		return nil, errors.New(errors.ErrCodeCredentialUpdateFailed, "failed to delete stale TOTP credentials").
			WithDetail("user_id", userID).
			WithDetail("failed_credential_ids", failedDeletes)
	}

	secret, err := GenerateTOTPSecret(TOTPSecretLength)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to generate TOTP secret")
	}

	body := map[string]interface{}{
		"type":      CredentialTypeTOTP,
		"userLabel": "MFA Setup",
		"algorithm": TOTPAlgorithm,
		"digits":    TOTPDigits,
		"period":    TOTPPeriod,
		"secret":    secret,
	}
	if err := c.doAdmin(ctx, "configure-totp", http.MethodPost, c.adminURL("/users/%s/configure-totp", userID), body, nil); err != nil {
		if errors.IsCode(err, errors.ErrCodeAuthBackendUnavailable) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeCredentialUpdateFailed, "failed to register TOTP credential").
			WithDetail("user_id", userID)
	}

	slog.Info("Rotated TOTP credential", "realm", c.config.Realm, "user_id", userID)

	return &TOTPEnrollment{
		Secret:          secret,
		ProvisioningURI: gotp.NewDefaultTOTP(secret).ProvisioningUri(userID, c.totpIssuer),
		Algorithm:       TOTPAlgorithm,
		Digits:          TOTPDigits,
		Period:          TOTPPeriod,
	}, nil
}
