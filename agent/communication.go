package agent

import (
	"context"
	"fmt"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
	"github.com/caremesh/caremesh/notify"
)

// CommunicationOptions configure the communication agent.
type CommunicationOptions struct {
	Logger logging.Logger

	// Fanout delivers outbound messages. Defaults to a log-only fan-out.
	Fanout *notify.Fanout
}

// Communication notifies family and staff about the encounter. It is also the
// orchestrator's error channel: NotifyFailure is invoked, best-effort, when a
// pipeline aborts.
type Communication struct {
	BaseAgent

	fanout *notify.Fanout
}

// NewCommunication constructs the communication agent.
func NewCommunication(optFns ...func(o *CommunicationOptions)) *Communication {
	opts := CommunicationOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Fanout == nil {
		opts.Fanout = notify.New(func(o *notify.Options) { o.Logger = opts.Logger })
	}
	return &Communication{BaseAgent: NewBaseAgent(NameCommunication, opts.Logger), fanout: opts.Fanout}
}

// Process implements core.Agent.
func (a *Communication) Process(ctx context.Context, wctx *core.WorkflowContext) (core.Result, error) {
	board := wctx.Board()

	familyNotified := false
	if contacts := a.familyContacts(wctx); len(contacts) > 0 {
		message := fmt.Sprintf("Patient %s has been admitted to the %s ward.", board.PatientID, board.Ward)
		familyNotified = a.fanout.Notify(ctx, contacts, message, "admission_update") > 0
	}

	staffAlerted := board.EmergencyLevel == core.LevelCritical
	if staffAlerted {
		a.Logger().Warn("staff alert session=%s condition=%s", wctx.SessionID, board.MedicalCondition)
	}

	return core.Result{}.
		WithField("family_notified", familyNotified).
		WithField("staff_alerts_sent", staffAlerted).
		WithField("external_notifications", []string{}).
		WithField("communication_status", "completed"), nil
}

// EmergencyProcess implements core.Agent: pushes the override notice out to
// family contacts immediately.
func (a *Communication) EmergencyProcess(ctx context.Context, wctx *core.WorkflowContext, override map[string]any) (core.Result, error) {
	contacts := a.familyContacts(wctx)
	reason, _ := override["reason"].(string)
	if reason == "" {
		reason = "emergency escalation"
	}

	delivered := a.fanout.Notify(ctx, contacts, "Emergency override active: "+reason, "emergency_override")

	return core.Result{}.
		WithField("family_notified", delivered > 0).
		WithField("staff_alerts_sent", true).
		WithField("communication_status", "override_notified"), nil
}

// NotifyFailure reports a pipeline abort to family contacts and staff. Errors
// here are logged and dropped; failure reporting must not fail the failure
// path.
func (a *Communication) NotifyFailure(ctx context.Context, wctx *core.WorkflowContext, cause error) {
	a.Logger().Error("workflow failure session=%s: %v", wctx.SessionID, cause)

	contacts := a.familyContacts(wctx)
	if len(contacts) == 0 {
		return
	}
	message := fmt.Sprintf("Processing for session %s was interrupted; hospital staff have been alerted.", wctx.SessionID)
	a.fanout.Notify(ctx, contacts, message, "workflow_failure")
}

// familyContacts builds the notification list from intake metadata. Both a
// structured patient record and a bare phone field are honored.
func (a *Communication) familyContacts(wctx *core.WorkflowContext) []notify.Contact {
	var contacts []notify.Contact

	if info := decodePatientInfo(wctx.MetaMap("patient_info")); info != nil && info.EmergencyContact != "" {
		contacts = append(contacts, notify.Contact{
			Name:      info.EmergencyContact,
			Phone:     info.ContactNumber,
			NotifySMS: info.ContactNumber != "",
			Primary:   true,
		})
	}
	if phone := wctx.MetaString("emergency_contact_phone"); phone != "" {
		contacts = append(contacts, notify.Contact{Name: "Emergency Contact", Phone: phone, NotifySMS: true})
	}

	return contacts
}
