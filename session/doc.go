// Package session provides the live session table used by the orchestrator.
// The in-memory implementation keeps every active workflow context in a
// process local map; completed sessions are removed and handed to the audit
// sink by the orchestrator.
package session
