package keycloak

// AdminConfig holds the connection settings for one realm's service client.
// Values are immutable after the AdminClient is constructed.
type AdminConfig struct {
	// BaseURL is the root of the Keycloak deployment, e.g. https://sso.example.com
	BaseURL string
	// Realm is the realm administered by this client
	Realm string
	// ClientID and ClientSecret identify the privileged service client used for
	// the client-credentials token exchange
	ClientID     string
	ClientSecret string
}

// User is a read-only snapshot of a user record as returned by the admin API.
// It is fetched fresh on every operation and never cached.
type User struct {
	ID         string              `json:"id"`
	Username   string              `json:"username"`
	Email      string              `json:"email,omitempty"`
	FirstName  string              `json:"firstName,omitempty"`
	LastName   string              `json:"lastName,omitempty"`
	Enabled    bool                `json:"enabled"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// Credential describes one credential registered for a user
type Credential struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	UserLabel      string `json:"userLabel,omitempty"`
	CreatedDate    int64  `json:"createdDate,omitempty"`
	CredentialData string `json:"credentialData,omitempty"`
}

// FederatedIdentity describes one linked external identity of a user
type FederatedIdentity struct {
	IdentityProvider string `json:"identityProvider"`
	UserID           string `json:"userId,omitempty"`
	UserName         string `json:"userName,omitempty"`
}

// AuthenticationSettings is a combined snapshot of a user's credentials and
// federated identities. The two lists are fetched in parallel; the snapshot is
// only returned when both fetches succeed.
type AuthenticationSettings struct {
	Credentials         []Credential        `json:"credentials"`
	FederatedIdentities []FederatedIdentity `json:"federated_identities"`
}

// TOTPEnrollment is the outcome of a TOTP credential rotation. Secret is the
// freshly generated shared secret; ProvisioningURI is the otpauth:// URL the UI
// renders as a QR code for the user's authenticator app.
type TOTPEnrollment struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	Algorithm       string `json:"algorithm"`
	Digits          int    `json:"digits"`
	Period          int    `json:"period"`
}

// tokenResponse is the provider's answer to a client-credentials grant
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type,omitempty"`
}

// Credential types as reported by the admin API
const (
	CredentialTypePassword = "password"
	CredentialTypeTOTP     = "totp"
)

// MFA types accepted by ConfigureUserMFA
const (
	MFATypeTOTP = "totp"
)

// TOTP credential parameters registered with the provider. These must match
// what the authenticator app derives from the provisioning URI.
const (
	TOTPAlgorithm = "HmacSHA1"
	TOTPDigits    = 6
	TOTPPeriod    = 30
)
