// Package apikey issues and verifies the service's admin API keys.
//
// Keys are random "ff_"-prefixed tokens; only a SHA-256 digest is stored,
// plus a short display prefix for key listings. The Service covers the
// full lifecycle: create, verify with last-used stamping, list, revoke,
// and rotate.
package apikey
