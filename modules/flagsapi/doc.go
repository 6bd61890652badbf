// Package flagsapi is the mountable HTTP surface of the flag service.
//
// Evaluation endpoints (POST /evaluate, POST /preview) and /healthz are
// open; the /admin subtree serves feature and rule management with
// If-Match concurrency control, API key administration, and the audit
// trail behind API key authentication.
//
//	r := chi.NewRouter()
//	r.Mount("/v1", svc.Handle())
package flagsapi
