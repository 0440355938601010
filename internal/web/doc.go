// Package web wires the JSON API: access logging, health and metrics endpoints and the route handlers.
package web
