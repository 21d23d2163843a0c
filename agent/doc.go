// Package agent contains the pipeline agents that process a patient encounter:
// triage, admission, billing, legal, medical records, scheduling,
// communication and the smart-device bridge. Agents are long-lived and shared
// across sessions; any mutable state they hold is guarded internally.
package agent
