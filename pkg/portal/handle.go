// Package portal exposes the self-service HTTP API: password change, account
// unlock, authentication-settings inspection and MFA setup. Every endpoint
// requires an authenticated caller; the target identity is taken from the
// token's email claim except for the operator endpoints that act on behalf of
// a locked-out user.
package portal

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/b1id/id-portal/pkg/audit"
	"github.com/b1id/id-portal/pkg/errors"
	"github.com/b1id/id-portal/pkg/keycloak"
	"github.com/b1id/id-portal/pkg/multirealm"
	"github.com/b1id/id-portal/pkg/notification"
)

// Handle handles the self-service HTTP API
type Handle struct {
	router  *multirealm.Router
	notices *notification.Manager
	auditor *audit.Service
}

// Option is a function that configures a Handle
type Option func(*Handle)

// WithNotificationManager enables security notices after credential changes
func WithNotificationManager(notices *notification.Manager) Option {
	return func(h *Handle) {
		h.notices = notices
	}
}

// WithAuditService enables the caller-facing audit trail endpoint
func WithAuditService(auditor *audit.Service) Option {
	return func(h *Handle) {
		h.auditor = auditor
	}
}

// NewHandle creates the portal API handle
func NewHandle(router *multirealm.Router, opts ...Option) *Handle {
	handle := &Handle{router: router}
	for _, opt := range opts {
		opt(handle)
	}
	return handle
}

// RegisterRoutes registers the self-service routes. The caller is expected to
// mount them inside a JWT-authenticated group.
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.GetProfile)
	r.Put("/password", h.ChangePassword)
	r.Post("/password/reset-email", h.SendPasswordResetEmail)
	r.Post("/unlock-account", h.UnlockAccount)
	r.Get("/auth-settings", h.GetAuthSettings)
	r.Post("/mfa/setup", h.SetupMFA)
	r.Post("/mfa/verify", h.VerifyMFA)
	r.Get("/audit", h.GetAuditTrail)
}

// callerEmail extracts the authenticated caller's email claim
func callerEmail(r *http.Request) (string, error) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		return "", errors.Unauthorized("missing or invalid access token")
	}
	email, ok := claims["email"].(string)
	if !ok || email == "" {
		return "", errors.Unauthorized("access token carries no email claim")
	}
	return email, nil
}

// respondErr maps a taxonomy error to a stable status code and body without
// leaking provider internals
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	message := http.StatusText(errors.MapErrorCodeToHTTPStatus(code))
	var structured *errors.Error
	if stderrors.As(err, &structured) {
		message = structured.Message
	}

	render.Status(r, errors.MapErrorCodeToHTTPStatus(code))
	render.JSON(w, r, ErrorResponse{Code: string(code), Message: message})
}

// GetProfile returns the authenticated caller's identity claims
// (GET /profile)
func (h *Handle) GetProfile(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	_, claims, _ := jwtauth.FromContext(r.Context())
	resp := ProfileResponse{Email: email}
	if username, ok := claims["preferred_username"].(string); ok {
		resp.Username = username
	}
	if given, ok := claims["given_name"].(string); ok {
		resp.FirstName = given
	}
	if family, ok := claims["family_name"].(string); ok {
		resp.LastName = family
	}
	render.JSON(w, r, resp)
}

// ChangePassword changes the caller's own password
// (PUT /password)
func (h *Handle) ChangePassword(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var data ChangePasswordRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil {
		respondErr(w, r, errors.InvalidInput("request body", "unable to parse"))
		return
	}
	if data.NewPassword == "" {
		respondErr(w, r, errors.InvalidInput("new_password", "must not be empty"))
		return
	}

	result, err := h.router.Execute(r.Context(), email, multirealm.Request{
		Operation:   multirealm.OpChangePassword,
		NewPassword: data.NewPassword,
		Temporary:   data.Temporary,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	h.notify(notification.NoticePasswordChanged, email, result.User.Username)
	render.JSON(w, r, MessageResponse{Message: "Password updated successfully"})
}

// SendPasswordResetEmail triggers the provider's password-reset email for the
// given identity
// (POST /password/reset-email)
func (h *Handle) SendPasswordResetEmail(w http.ResponseWriter, r *http.Request) {
	var data PasswordResetEmailRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil || data.Email == "" {
		respondErr(w, r, errors.InvalidInput("email", "must not be empty"))
		return
	}

	_, err := h.router.Execute(r.Context(), data.Email, multirealm.Request{
		Operation: multirealm.OpSendActionsEmail,
		Actions:   []string{"UPDATE_PASSWORD"},
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	render.JSON(w, r, MessageResponse{Message: "Password reset email sent"})
}

// UnlockAccount clears the lockout of the given identity. This is the one
// endpoint acting on behalf of someone else, since a locked-out user cannot
// authenticate to unlock themselves.
// (POST /unlock-account)
func (h *Handle) UnlockAccount(w http.ResponseWriter, r *http.Request) {
	if _, err := callerEmail(r); err != nil {
		respondErr(w, r, err)
		return
	}

	var data UnlockAccountRequest
	if err := render.DecodeJSON(r.Body, &data); err != nil || data.Email == "" {
		respondErr(w, r, errors.InvalidInput("email", "must not be empty"))
		return
	}

	result, err := h.router.Execute(r.Context(), data.Email, multirealm.Request{Operation: multirealm.OpUnlockAccount})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	h.notify(notification.NoticeAccountUnlocked, data.Email, result.User.Username)
	render.JSON(w, r, MessageResponse{Message: "Account unlocked"})
}

// GetAuthSettings returns the caller's credential and federated-identity
// snapshot
// (GET /auth-settings)
func (h *Handle) GetAuthSettings(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	result, err := h.router.Execute(r.Context(), email, multirealm.Request{Operation: multirealm.OpGetAuthSettings})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	render.JSON(w, r, AuthSettingsResponse{
		Credentials:         result.AuthSettings.Credentials,
		FederatedIdentities: result.AuthSettings.FederatedIdentities,
	})
}

// SetupMFA rotates the caller's TOTP enrollment and returns the fresh secret
// with its provisioning URI
// (POST /mfa/setup)
func (h *Handle) SetupMFA(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	data := SetupMFARequest{Type: keycloak.MFATypeTOTP}
	if r.Body != nil && r.ContentLength != 0 {
		if err := render.DecodeJSON(r.Body, &data); err != nil {
			respondErr(w, r, errors.InvalidInput("request body", "unable to parse"))
			return
		}
		if data.Type == "" {
			data.Type = keycloak.MFATypeTOTP
		}
	}

	result, err := h.router.Execute(r.Context(), email, multirealm.Request{
		Operation: multirealm.OpConfigureMFA,
		MFAType:   data.Type,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}

	h.notify(notification.NoticeMFAConfigured, email, result.User.Username)

	var resp SetupMFAResponse
	copier.Copy(&resp, result.MFAEnrollment)
	render.JSON(w, r, resp)
}

// VerifyMFA checks one passcode against a just-enrolled secret so the UI can
// confirm the authenticator app was set up correctly
// (POST /mfa/verify)
func (h *Handle) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	if _, err := callerEmail(r); err != nil {
		respondErr(w, r, err)
		return
	}

	var data VerifyMFARequest
	if err := render.DecodeJSON(r.Body, &data); err != nil || data.Secret == "" || data.Code == "" {
		respondErr(w, r, errors.InvalidInput("request body", "secret and code are required"))
		return
	}

	valid, err := totp.ValidateCustom(data.Code, data.Secret, time.Now().UTC(), totp.ValidateOpts{
		Period:    keycloak.TOTPPeriod,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		respondErr(w, r, errors.New(errors.ErrCode2FAInvalid, "passcode could not be validated"))
		return
	}

	render.JSON(w, r, VerifyMFAResponse{Valid: valid})
}

// GetAuditTrail returns the caller's recorded operations, newest first
// (GET /audit)
func (h *Handle) GetAuditTrail(w http.ResponseWriter, r *http.Request) {
	email, err := callerEmail(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if h.auditor == nil {
		respondErr(w, r, errors.NotFound("audit trail", email))
		return
	}

	events, err := h.auditor.FindByEmail(r.Context(), email)
	if err != nil {
		respondErr(w, r, errors.InternalWrap(err, "failed to load audit trail"))
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	render.JSON(w, r, events)
}

func (h *Handle) notify(noticeType notification.NoticeType, email, username string) {
	if h.notices == nil {
		return
	}
	h.notices.Notify(noticeType, email, username)
	slog.Debug("Queued security notice", "type", noticeType)
}
