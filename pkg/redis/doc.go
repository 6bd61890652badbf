// Package redis provides the Redis connection layer: a retrying connector
// driven by environment configuration and a healthcheck adapter. The
// returned client backs the evaluator's decision cache and the rules
// version mirror.
package redis
