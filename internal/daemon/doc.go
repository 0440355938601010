// Package daemon builds the service from the configuration: database, permission cache,
// token issuer, auth service, seed data and the web server.
package daemon
