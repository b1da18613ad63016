package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/b1id/id-portal/pkg/audit"
	"github.com/b1id/id-portal/pkg/errors"
	"github.com/b1id/id-portal/pkg/keycloak"
	"github.com/b1id/id-portal/pkg/multirealm"
	"github.com/b1id/id-portal/pkg/notification"
	"github.com/b1id/id-portal/pkg/realm"
)

// stubAdminClient implements multirealm.AdminClient for handler tests
type stubAdminClient struct {
	users       map[string]keycloak.User
	passwordErr error
	unlocked    []string
}

func (s *stubAdminClient) FindUserByUsername(ctx context.Context, username string) (*keycloak.User, error) {
	if user, ok := s.users[username]; ok {
		return &user, nil
	}
	return nil, nil
}

func (s *stubAdminClient) ChangeUserPassword(ctx context.Context, userID, newPassword string, temporary bool) error {
	return s.passwordErr
}

func (s *stubAdminClient) UnlockUserAccount(ctx context.Context, userID string) error {
	s.unlocked = append(s.unlocked, userID)
	return nil
}

func (s *stubAdminClient) GetUserAuthenticationSettings(ctx context.Context, userID string) (*keycloak.AuthenticationSettings, error) {
	return &keycloak.AuthenticationSettings{
		Credentials: []keycloak.Credential{{ID: "cred-1", Type: keycloak.CredentialTypePassword}},
	}, nil
}

func (s *stubAdminClient) ConfigureUserMFA(ctx context.Context, userID, mfaType string) (*keycloak.TOTPEnrollment, error) {
	if mfaType != keycloak.MFATypeTOTP {
		return nil, errors.Newf(errors.ErrCodeUnsupportedMFAType, "unsupported MFA type: %s", mfaType)
	}
	secret, err := keycloak.GenerateTOTPSecret(keycloak.TOTPSecretLength)
	if err != nil {
		return nil, err
	}
	return &keycloak.TOTPEnrollment{
		Secret:          secret,
		ProvisioningURI: "otpauth://totp/test?secret=" + secret,
		Algorithm:       keycloak.TOTPAlgorithm,
		Digits:          keycloak.TOTPDigits,
		Period:          keycloak.TOTPPeriod,
	}, nil
}

func (s *stubAdminClient) SendRequiredActionsEmail(ctx context.Context, userID string, actions []string) error {
	return nil
}

const testJWTSecret = "test-secret"

type testPortal struct {
	server    *httptest.Server
	stub      *stubAdminClient
	notifier  *notification.MockNotifier
	auditRepo *audit.InMemoryRepository
}

func newTestPortal(t *testing.T) *testPortal {
	stub := &stubAdminClient{users: map[string]keycloak.User{
		"alice":  {ID: "alice-id", Username: "alice", Email: "alice@company-a.com"},
		"locked": {ID: "locked-id", Username: "locked", Email: "locked@company-a.com"},
	}}

	resolver := realm.NewResolver(map[string]string{"company-a.com": "company-a-realm"}, "default-realm")
	auditRepo := audit.NewInMemoryRepository()
	router := multirealm.NewRouter(resolver, multirealm.WithAuditService(audit.NewService(auditRepo)))
	router.AddRealm("company-a-realm", stub)

	notifier := &notification.MockNotifier{}
	handle := NewHandle(router,
		WithNotificationManager(notification.NewManager(notifier)),
		WithAuditService(audit.NewService(auditRepo)),
	)

	tokenAuth := jwtauth.New("HS256", []byte(testJWTSecret), nil)
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(jwtauth.Verifier(tokenAuth))
		r.Use(jwtauth.Authenticator(tokenAuth))
		handle.RegisterRoutes(r)
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testPortal{server: server, stub: stub, notifier: notifier, auditRepo: auditRepo}
}

func (p *testPortal) request(t *testing.T, method, path, email string, body interface{}) *http.Response {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		require.NoError(t, json.NewEncoder(reqBody).Encode(body))
	}

	req, err := http.NewRequest(method, p.server.URL+path, reqBody)
	require.NoError(t, err)
	if email != "" {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"email":              email,
			"preferred_username": "alice",
			"exp":                time.Now().Add(time.Hour).Unix(),
		})
		tokenStr, err := token.SignedString([]byte(testJWTSecret))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tokenStr)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestAuthenticationRequired(t *testing.T) {
	portal := newTestPortal(t)

	resp := portal.request(t, http.MethodGet, "/profile", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetProfile(t *testing.T) {
	portal := newTestPortal(t)

	resp := portal.request(t, http.MethodGet, "/profile", "alice@company-a.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile ProfileResponse
	decodeJSON(t, resp, &profile)
	assert.Equal(t, "alice@company-a.com", profile.Email)
	assert.Equal(t, "alice", profile.Username)
}

func TestChangePassword(t *testing.T) {
	t.Run("success sends a notice", func(t *testing.T) {
		portal := newTestPortal(t)

		resp := portal.request(t, http.MethodPut, "/password", "alice@company-a.com",
			ChangePasswordRequest{NewPassword: "new-Passw0rd!"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		require.Len(t, portal.notifier.SentTypes, 1)
		assert.Equal(t, notification.NoticePasswordChanged, portal.notifier.SentTypes[0])
	})

	t.Run("empty password is rejected", func(t *testing.T) {
		portal := newTestPortal(t)

		resp := portal.request(t, http.MethodPut, "/password", "alice@company-a.com",
			ChangePasswordRequest{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown user maps to 404 with a stable code", func(t *testing.T) {
		portal := newTestPortal(t)

		resp := portal.request(t, http.MethodPut, "/password", "ghost@company-a.com",
			ChangePasswordRequest{NewPassword: "x"})
		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		var errResp ErrorResponse
		decodeJSON(t, resp, &errResp)
		assert.Equal(t, string(errors.ErrCodeUserNotFound), errResp.Code)
	})

	t.Run("provider failure maps to 502 without internals", func(t *testing.T) {
		portal := newTestPortal(t)
		portal.stub.passwordErr = errors.New(errors.ErrCodeCredentialUpdateFailed, "failed to change user password").
			WithDetail("detail", "secret provider stack trace")

		resp := portal.request(t, http.MethodPut, "/password", "alice@company-a.com",
			ChangePasswordRequest{NewPassword: "x"})
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var errResp ErrorResponse
		decodeJSON(t, resp, &errResp)
		assert.Equal(t, string(errors.ErrCodeCredentialUpdateFailed), errResp.Code)
		assert.NotContains(t, errResp.Message, "stack trace")
	})
}

func TestUnlockAccount(t *testing.T) {
	portal := newTestPortal(t)

	resp := portal.request(t, http.MethodPost, "/unlock-account", "operator@company-a.com",
		UnlockAccountRequest{Email: "locked@company-a.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	assert.Equal(t, []string{"locked-id"}, portal.stub.unlocked)
	require.Len(t, portal.notifier.SentTypes, 1)
	assert.Equal(t, notification.NoticeAccountUnlocked, portal.notifier.SentTypes[0])
	assert.Equal(t, "locked@company-a.com", portal.notifier.SentNotifications[0].To)
}

func TestGetAuthSettings(t *testing.T) {
	portal := newTestPortal(t)

	resp := portal.request(t, http.MethodGet, "/auth-settings", "alice@company-a.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var settings AuthSettingsResponse
	decodeJSON(t, resp, &settings)
	require.Len(t, settings.Credentials, 1)
	assert.Equal(t, "cred-1", settings.Credentials[0].ID)
}

func TestSetupAndVerifyMFA(t *testing.T) {
	portal := newTestPortal(t)

	resp := portal.request(t, http.MethodPost, "/mfa/setup", "alice@company-a.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var setup SetupMFAResponse
	decodeJSON(t, resp, &setup)
	assert.Len(t, setup.Secret, keycloak.TOTPSecretLength)
	assert.Equal(t, keycloak.TOTPDigits, setup.Digits)

	// a passcode derived from the enrolled secret verifies
	code, err := totp.GenerateCode(setup.Secret, time.Now().UTC())
	require.NoError(t, err)

	resp = portal.request(t, http.MethodPost, "/mfa/verify", "alice@company-a.com",
		VerifyMFARequest{Secret: setup.Secret, Code: code})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verify VerifyMFAResponse
	decodeJSON(t, resp, &verify)
	assert.True(t, verify.Valid)

	// a wrong passcode does not
	resp = portal.request(t, http.MethodPost, "/mfa/verify", "alice@company-a.com",
		VerifyMFARequest{Secret: setup.Secret, Code: "000000"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	verify = VerifyMFAResponse{Valid: true}
	decodeJSON(t, resp, &verify)
	assert.False(t, verify.Valid)
}

func TestUnsupportedMFAType(t *testing.T) {
	portal := newTestPortal(t)

	resp := portal.request(t, http.MethodPost, "/mfa/setup", "alice@company-a.com",
		SetupMFARequest{Type: "sms"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp ErrorResponse
	decodeJSON(t, resp, &errResp)
	assert.Equal(t, string(errors.ErrCodeUnsupportedMFAType), errResp.Code)
}

func TestGetAuditTrail(t *testing.T) {
	portal := newTestPortal(t)

	resp := portal.request(t, http.MethodPut, "/password", "alice@company-a.com",
		ChangePasswordRequest{NewPassword: "new-Passw0rd!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = portal.request(t, http.MethodGet, "/audit", "alice@company-a.com", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var events []audit.Event
	decodeJSON(t, resp, &events)
	require.Len(t, events, 1)
	assert.Equal(t, string(multirealm.OpChangePassword), events[0].Operation)
	assert.Equal(t, audit.OutcomeSuccess, events[0].Outcome)
}
