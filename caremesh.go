// Package caremesh provides a high-level façade over the workflow
// orchestrator and the device subsystem, enabling rapid construction of
// hospital encounter automation. Most applications interact with this package
// by:
//  1. Creating a CareMesh via New() (optionally overriding the default
//     in-memory services and collaborators)
//  2. Starting workflows (StartWorkflow) and polling them (WorkflowStatus)
//  3. Registering smart devices and streaming their vitals
//
// The façade delegates pipeline execution to orchestrator.Orchestrator while
// keeping setup ergonomics concise. All defaults are safe for local
// development and testing; production deployments typically supply a durable
// audit sink, real notification transports and a structured logger.
package caremesh

import (
	"context"
	"time"

	"github.com/caremesh/caremesh/agent"
	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/device"
	"github.com/caremesh/caremesh/insurance"
	"github.com/caremesh/caremesh/logging"
	"github.com/caremesh/caremesh/notify"
	"github.com/caremesh/caremesh/orchestrator"
	"github.com/caremesh/caremesh/session"
)

// Options configures the CareMesh instance.
type Options struct {
	// SessionStore holds live workflow sessions. Defaults to in-memory.
	SessionStore core.SessionStore
	// AuditSink receives completed sessions and emergency alerts. Optional.
	AuditSink core.AuditSink

	// Fanout delivers emergency and family notifications. Defaults to
	// log-only transports.
	Fanout *notify.Fanout
	// Extractor recovers patient identity from intake text. Optional.
	Extractor core.PatientExtractor
	// Verifier checks insurance coverage. Defaults to the static provider
	// table.
	Verifier core.InsuranceVerifier
	// Registrar files police cases. Optional.
	Registrar core.CaseRegistrar
	// AccessPolicy gates doctor device scans. Defaults to allow-all.
	AccessPolicy device.AccessPolicy

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// CareMesh is the high-level façade aggregating the orchestrator, the default
// agent set and the device registry.
type CareMesh struct {
	opts    Options
	orch    *orchestrator.Orchestrator
	devices *device.Registry
}

// New creates a CareMesh with the full default agent set wired in. Any unset
// service is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *CareMesh {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		Verifier:     insurance.NewStaticVerifier(),
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Fanout == nil {
		opts.Fanout = notify.New(func(o *notify.Options) { o.Logger = opts.Logger })
	}

	devices := device.NewRegistry(func(o *device.RegistryOptions) {
		o.Fanout = opts.Fanout
		o.Audit = opts.AuditSink
		o.Logger = opts.Logger
		if opts.AccessPolicy != nil {
			o.Access = opts.AccessPolicy
		}
	})

	orch := orchestrator.New(func(o *orchestrator.Options) {
		o.Sessions = opts.SessionStore
		o.Audit = opts.AuditSink
		o.Logger = opts.Logger
	})

	orch.RegisterAgent(agent.NewTriage(func(o *agent.TriageOptions) { o.Logger = opts.Logger }))
	orch.RegisterAgent(agent.NewAdmission(func(o *agent.AdmissionOptions) {
		o.Logger = opts.Logger
		o.Extractor = opts.Extractor
		o.Verifier = opts.Verifier
		o.Registrar = opts.Registrar
	}))
	orch.RegisterAgent(agent.NewLegal(func(o *agent.LegalOptions) {
		o.Logger = opts.Logger
		o.Registrar = opts.Registrar
	}))
	orch.RegisterAgent(agent.NewMedicalRecords(func(o *agent.MedicalRecordsOptions) { o.Logger = opts.Logger }))
	orch.RegisterAgent(agent.NewSmartDevice(devices, func(o *agent.SmartDeviceOptions) { o.Logger = opts.Logger }))
	orch.RegisterAgent(agent.NewBilling(func(o *agent.BillingOptions) { o.Logger = opts.Logger }))
	orch.RegisterAgent(agent.NewCommunication(func(o *agent.CommunicationOptions) {
		o.Logger = opts.Logger
		o.Fanout = opts.Fanout
	}))
	orch.RegisterAgent(agent.NewScheduling(func(o *agent.SchedulingOptions) { o.Logger = opts.Logger }))

	return &CareMesh{opts: opts, orch: orch, devices: devices}
}

// Orchestrator exposes the underlying orchestrator for custom agent or
// pipeline registration.
func (m *CareMesh) Orchestrator() *orchestrator.Orchestrator { return m.orch }

// Devices exposes the device registry.
func (m *CareMesh) Devices() *device.Registry { return m.devices }

// StartWorkflow launches a workflow of the given type and returns its session
// id immediately.
func (m *CareMesh) StartWorkflow(ctx context.Context, typ core.WorkflowType, initial map[string]any) (string, error) {
	return m.orch.StartWorkflow(ctx, typ, initial)
}

// WorkflowStatus returns the session's current snapshot.
func (m *CareMesh) WorkflowStatus(sessionID string) (core.Status, error) {
	return m.orch.Status(sessionID)
}

// CompleteWorkflow finalizes a session into the audit sink. Idempotent.
func (m *CareMesh) CompleteWorkflow(ctx context.Context, sessionID string) error {
	return m.orch.Complete(ctx, sessionID)
}

// EmergencyOverride escalates a live session synchronously.
func (m *CareMesh) EmergencyOverride(ctx context.Context, sessionID string, override map[string]any) error {
	return m.orch.EmergencyOverride(ctx, sessionID, override)
}

// AgentHealth reports the health of every registered agent.
func (m *CareMesh) AgentHealth(ctx context.Context) map[string]bool {
	return m.orch.AgentHealth(ctx)
}

// RegisterDevice adds a smart device to the registry.
func (m *CareMesh) RegisterDevice(d device.Device) error {
	return m.devices.Register(d)
}

// UpdateVitals streams readings into a device, evaluating emergency
// thresholds synchronously.
func (m *CareMesh) UpdateVitals(ctx context.Context, deviceID string, vitals map[string]any) (device.Evaluation, error) {
	return m.devices.UpdateVitals(ctx, deviceID, vitals)
}

// ScanDevice reads a scoped device view on behalf of a doctor.
func (m *CareMesh) ScanDevice(ctx context.Context, req device.ScanRequest) (device.ScanResult, error) {
	return m.devices.Scan(ctx, req)
}

// ReapIdleSessions removes sessions idle for longer than maxAge. Never
// scheduled automatically; call it from a maintenance loop if desired.
func (m *CareMesh) ReapIdleSessions(ctx context.Context, maxAge time.Duration) int {
	return m.orch.ReapIdleSessions(ctx, maxAge)
}

// Shutdown drains running pipelines, completes remaining sessions and shuts
// down every agent.
func (m *CareMesh) Shutdown(ctx context.Context) error {
	return m.orch.Shutdown(ctx)
}
