// Package httpserver runs the service's HTTP listener with graceful
// shutdown on context cancellation or an interrupt signal.
package httpserver
