// Package login provides the HTTP handler that exchanges credentials for a bearer token.
//
// This file defines exported error values used throughout the login flow.
package login

import "errors"

// ErrNilDependencies is returned by Init when app, config or auth service is missing.
var ErrNilDependencies = errors.New("app, cfg or auth service is nil")
