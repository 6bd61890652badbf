// Package pg wires PostgreSQL connectivity for the service: a retrying
// pgxpool connector, a healthcheck adapter, goose migrations over an
// embedded filesystem, and SQLSTATE helpers that let stores translate
// driver errors into domain sentinels.
package pg
