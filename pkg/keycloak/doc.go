// Package keycloak implements the administrative client used to manage end-user
// credentials in one Keycloak realm.
//
// An AdminClient authenticates as the realm's privileged service client via the
// client-credentials grant and caches the resulting admin token; the cached
// token is reused until a safety margin before its declared lifetime, and is
// refreshed transparently before the next admin call once stale. Refreshes are
// serialized per client.
//
// The client exposes the operation set the self-service portal needs: exact
// username lookup, password reset, account unlock (session revocation plus
// brute-force counter reset), an authentication-settings snapshot, the
// required-actions email trigger, and TOTP credential rotation with a
// cryptographically random shared secret.
//
// Failures are reported through the pkg/errors taxonomy: a failed token
// exchange is AUTH_BACKEND_UNAVAILABLE, any other transport or non-2xx failure
// is PROVIDER_REQUEST_FAILED (or CREDENTIAL_UPDATE_FAILED for credential
// mutations). Nothing is retried here; callers own retry policy.
package keycloak
