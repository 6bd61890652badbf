// Package audit records the admin audit trail: every feature and rule
// mutation is written as an Event attributed to the API key that made it.
// Storage backends exist for Postgres and in-memory use; the Logger's
// Record method plugs directly into the management layer's auditor hook.
package audit
