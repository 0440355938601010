// Package main provides the entry point of newsdesk, the access control core of the
// newsdesk CMS back office. It serves a JSON API built on Fiber for login, role and
// permission management and user administration, persists through gorm and decides
// every request from the permissions of the caller's role.
package main
