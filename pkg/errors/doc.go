// Package errors provides structured error handling with error codes for id-portal.
//
// This package standardizes error handling across all services with typed error
// codes, structured error details, and automatic HTTP status code mapping.
//
// # Basic Usage
//
// Creating errors with codes:
//
//	import "github.com/b1id/id-portal/pkg/errors"
//
//	// Create a simple error
//	err := errors.New(errors.ErrCodeUserNotFound, "user not found")
//
//	// Create error with formatted message
//	err := errors.Newf(errors.ErrCodeInvalidIdentity, "invalid identity: %s", email)
//
//	// Wrap an existing error
//	err := errors.Wrap(httpErr, errors.ErrCodeProviderRequestFailed, "failed to call provider")
//
// # Error Codes
//
// All error codes are strongly typed and organized by category:
//
// Generic:
//   - ErrCodeInternal
//   - ErrCodeInvalidInput
//   - ErrCodeNotFound
//   - ErrCodeUnauthorized
//   - ErrCodeForbidden
//   - ErrCodeTimeout
//
// Identity provider:
//   - ErrCodeAuthBackendUnavailable: the admin token exchange failed (hard outage)
//   - ErrCodeProviderRequestFailed: any non-2xx or transport error on a provider call
//   - ErrCodeCredentialUpdateFailed: a credential mutation was rejected by the provider
//
// Routing:
//   - ErrCodeUserNotFound
//   - ErrCodeRealmNotConfigured
//   - ErrCodeInvalidIdentity
//
// # Error Details
//
// Add structured details to errors for better debugging:
//
//	err := errors.New(errors.ErrCodeProviderRequestFailed, "provider request failed").
//		WithDetail("operation", "reset-password").
//		WithDetail("status", 403)
//
// # Error Inspection
//
//	if errors.IsCode(err, errors.ErrCodeUserNotFound) {
//		// Handle not found case
//	}
//
//	code := errors.GetCode(err)
//	details := errors.GetDetails(err)
//
// # HTTP Status Code Mapping
//
// The HTTP layer maps errors to status codes without leaking provider internals:
//
//	status := errors.MapErrorCodeToHTTPStatus(errors.GetCode(err))
package errors
