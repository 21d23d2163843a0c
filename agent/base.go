package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/caremesh/caremesh/logging"
)

// Agent name constants used in pipeline definitions.
const (
	NameTriage         = "triage"
	NameAdmission      = "admission"
	NameLegal          = "legal"
	NameMedicalRecords = "medical_records"
	NameSmartDevice    = "smart_health_device"
	NameBilling        = "billing"
	NameCommunication  = "communication"
	NameScheduling     = "scheduling"
)

// BaseAgent carries the identity and logger every concrete agent embeds. It
// provides the no-op lifecycle defaults so simple agents only implement
// Process.
type BaseAgent struct {
	name   string
	logger logging.Logger
}

// NewBaseAgent constructs the embeddable base.
func NewBaseAgent(name string, logger logging.Logger) BaseAgent {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return BaseAgent{name: name, logger: logger}
}

// Name returns the agent's pipeline name.
func (b *BaseAgent) Name() string { return b.name }

// Logger returns the agent's logger.
func (b *BaseAgent) Logger() logging.Logger { return b.logger }

// HealthCheck reports the agent as healthy.
func (b *BaseAgent) HealthCheck(context.Context) error { return nil }

// Shutdown releases agent resources.
func (b *BaseAgent) Shutdown(context.Context) error {
	b.logger.Info("agent %s shut down", b.name)
	return nil
}

// shortHex returns n uppercase hex characters for identifier suffixes.
func shortHex(n int) string {
	h := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	if n > len(h) {
		n = len(h)
	}
	return h[:n]
}
