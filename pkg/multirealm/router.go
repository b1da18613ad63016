// Package multirealm routes administrative operations to the realm responsible
// for an end-user identity. It is the single place tenant isolation is
// enforced: realm resolution, client lookup, user resolution and dispatch are
// fused in one call, so a caller can never address a user in the wrong realm.
package multirealm

import (
	"context"
	"log/slog"
	"sync"

	"github.com/b1id/id-portal/pkg/audit"
	"github.com/b1id/id-portal/pkg/errors"
	"github.com/b1id/id-portal/pkg/keycloak"
	"github.com/b1id/id-portal/pkg/realm"
)

// AdminClient is the per-realm administrative operation set the router
// dispatches to. *keycloak.AdminClient implements it.
type AdminClient interface {
	FindUserByUsername(ctx context.Context, username string) (*keycloak.User, error)
	ChangeUserPassword(ctx context.Context, userID, newPassword string, temporary bool) error
	UnlockUserAccount(ctx context.Context, userID string) error
	GetUserAuthenticationSettings(ctx context.Context, userID string) (*keycloak.AuthenticationSettings, error)
	ConfigureUserMFA(ctx context.Context, userID, mfaType string) (*keycloak.TOTPEnrollment, error)
	SendRequiredActionsEmail(ctx context.Context, userID string, actions []string) error
}

// Operation enumerates the administrative operations the router can dispatch.
// The set is closed: a Request carrying anything else fails validation before
// any realm is contacted.
type Operation string

const (
	OpChangePassword   Operation = "change_password"
	OpUnlockAccount    Operation = "unlock_account"
	OpGetAuthSettings  Operation = "get_auth_settings"
	OpConfigureMFA     Operation = "configure_mfa"
	OpSendActionsEmail Operation = "send_actions_email"
)

// Request describes one operation to execute against the realm responsible
// for the target identity. Only the fields relevant to the operation are read.
type Request struct {
	Operation Operation

	// OpChangePassword
	NewPassword string
	Temporary   bool

	// OpConfigureMFA
	MFAType string

	// OpSendActionsEmail
	Actions []string
}

// Result carries the outcome of an executed operation. User and Realm are
// always set; the remaining fields depend on the operation.
type Result struct {
	User  keycloak.User
	Realm string

	AuthSettings  *keycloak.AuthenticationSettings
	MFAEnrollment *keycloak.TOTPEnrollment
}

// Router holds the registry of per-realm admin clients and dispatches
// operations to them. Registration and lookup are mutually exclusive, so
// realms may be added at runtime.
type Router struct {
	resolver *realm.Resolver
	auditor  *audit.Service

	mu      sync.RWMutex
	clients map[string]AdminClient
}

// Option is a function that configures a Router
type Option func(*Router)

// WithAuditService makes the router record every executed operation
func WithAuditService(auditor *audit.Service) Option {
	return func(r *Router) {
		r.auditor = auditor
	}
}

// NewRouter creates a router using the given resolver. Clients are registered
// afterwards with AddRealm.
func NewRouter(resolver *realm.Resolver, opts ...Option) *Router {
	router := &Router{
		resolver: resolver,
		clients:  make(map[string]AdminClient),
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

// AddRealm registers the admin client for one realm, replacing any previous
// registration under the same name.
func (r *Router) AddRealm(name string, client AdminClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
}

// GetRealmClient returns the admin client registered for a realm
func (r *Router) GetRealmClient(name string) (AdminClient, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	return client, ok
}

// Execute resolves the realm for the target email, resolves the user inside
// that realm and dispatches the requested operation. Errors from the admin
// client are propagated unchanged; nothing is retried here.
func (r *Router) Execute(ctx context.Context, email string, req Request) (*Result, error) {
	result, realmName, err := r.execute(ctx, email, req)
	if r.auditor != nil {
		outcome := audit.OutcomeSuccess
		detail := ""
		if err != nil {
			outcome = audit.OutcomeFailure
			detail = string(errors.GetCode(err))
		}
		r.auditor.Record(ctx, email, realmName, string(req.Operation), outcome, detail)
	}
	return result, err
}

func (r *Router) execute(ctx context.Context, email string, req Request) (*Result, string, error) {
	if err := validateRequest(req); err != nil {
		return nil, "", err
	}

	realmName, err := r.resolver.Resolve(email)
	if err != nil {
		return nil, "", err
	}

	client, ok := r.GetRealmClient(realmName)
	if !ok {
		return nil, realmName, errors.Newf(errors.ErrCodeRealmNotConfigured, "no client configured for realm: %s", realmName).
			WithDetail("realm", realmName)
	}

	localPart, _, err := realm.SplitEmail(email)
	if err != nil {
		return nil, realmName, err
	}

	user, err := client.FindUserByUsername(ctx, localPart)
	if err != nil {
		return nil, realmName, err
	}
	if user == nil {
		return nil, realmName, errors.Newf(errors.ErrCodeUserNotFound, "user not found: %s", email)
	}

	result := &Result{User: *user, Realm: realmName}

	switch req.Operation {
	case OpChangePassword:
		err = client.ChangeUserPassword(ctx, user.ID, req.NewPassword, req.Temporary)
	case OpUnlockAccount:
		err = client.UnlockUserAccount(ctx, user.ID)
	case OpGetAuthSettings:
		result.AuthSettings, err = client.GetUserAuthenticationSettings(ctx, user.ID)
	case OpConfigureMFA:
		result.MFAEnrollment, err = client.ConfigureUserMFA(ctx, user.ID, req.MFAType)
	case OpSendActionsEmail:
		err = client.SendRequiredActionsEmail(ctx, user.ID, req.Actions)
	}
	if err != nil {
		slog.Error("Operation failed", "operation", req.Operation, "realm", realmName, "err", err)
		return nil, realmName, err
	}

	return result, realmName, nil
}

// validateRequest rejects unknown operations and incomplete arguments before
// any provider call is made
func validateRequest(req Request) error {
	switch req.Operation {
	case OpChangePassword:
		if req.NewPassword == "" {
			return errors.InvalidInput("new_password", "must not be empty")
		}
	case OpConfigureMFA:
		if req.MFAType == "" {
			return errors.InvalidInput("mfa_type", "must not be empty")
		}
	case OpSendActionsEmail:
		if len(req.Actions) == 0 {
			return errors.InvalidInput("actions", "at least one required action must be given")
		}
	case OpUnlockAccount, OpGetAuthSettings:
		// no arguments
	default:
		return errors.Newf(errors.ErrCodeInvalidInput, "unsupported operation: %s", req.Operation)
	}
	return nil
}
