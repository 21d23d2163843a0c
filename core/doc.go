// Package core defines the shared contracts of the CareMesh workflow engine:
// the Agent capability interface, the per-session WorkflowContext with its
// typed blackboard and open metadata bag, the workflow type catalogue, and the
// narrow interfaces through which the engine consumes external collaborators
// (session storage, audit persistence, patient-info extraction, insurance
// verification, legal-case registration).
//
// The package is deliberately free of orchestration logic; it exists so that
// the orchestrator, the agents and the device subsystem can depend on a small
// stable surface rather than on each other.
package core
