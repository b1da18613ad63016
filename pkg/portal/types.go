package portal

import "github.com/b1id/id-portal/pkg/keycloak"

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
	Temporary   bool   `json:"temporary,omitempty"`
}

type UnlockAccountRequest struct {
	Email string `json:"email"`
}

type PasswordResetEmailRequest struct {
	Email string `json:"email"`
}

type SetupMFARequest struct {
	Type string `json:"type,omitempty"`
}

type VerifyMFARequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

type ProfileResponse struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

type AuthSettingsResponse struct {
	Credentials         []keycloak.Credential        `json:"credentials"`
	FederatedIdentities []keycloak.FederatedIdentity `json:"federated_identities"`
}

type SetupMFAResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	Algorithm       string `json:"algorithm"`
	Digits          int    `json:"digits"`
	Period          int    `json:"period"`
}

type VerifyMFAResponse struct {
	Valid bool `json:"valid"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
