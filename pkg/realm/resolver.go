// Package realm maps end-user identities to the Keycloak realm responsible for
// them. Resolution is a pure function over the email's domain part, backed by a
// static domain-to-realm table with a default fallback.
package realm

import (
	"strings"

	"github.com/b1id/id-portal/pkg/errors"
)

// Resolver resolves an email address to a realm name. The domain table and
// default are fixed at construction time; a Resolver is safe for concurrent use.
type Resolver struct {
	domainRealms map[string]string
	defaultRealm string
}

// NewResolver creates a resolver from a domain-to-realm table and a default
// realm name used when no domain matches. The table is copied, so later
// mutation of the argument does not affect the resolver.
func NewResolver(domainRealms map[string]string, defaultRealm string) *Resolver {
	table := make(map[string]string, len(domainRealms))
	for domain, realmName := range domainRealms {
		table[strings.ToLower(domain)] = realmName
	}
	return &Resolver{
		domainRealms: table,
		defaultRealm: defaultRealm,
	}
}

// Resolve returns the realm responsible for the given email address. An email
// without a domain part is a caller contract violation and fails with
// InvalidIdentity.
func (r *Resolver) Resolve(email string) (string, error) {
	_, domain, err := SplitEmail(email)
	if err != nil {
		return "", err
	}

	if realmName, ok := r.domainRealms[strings.ToLower(domain)]; ok {
		return realmName, nil
	}
	return r.defaultRealm, nil
}

// DefaultRealm returns the configured fallback realm name
func (r *Resolver) DefaultRealm() string {
	return r.defaultRealm
}

// SplitEmail splits an email address into its local part and domain, splitting
// on the last "@" so quoted local parts keep their content. Both parts must be
// non-empty.
func SplitEmail(email string) (local, domain string, err error) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", errors.Newf(errors.ErrCodeInvalidIdentity, "invalid identity: %q is not an email address", email)
	}
	return email[:at], email[at+1:], nil
}
