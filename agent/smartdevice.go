package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/device"
	"github.com/caremesh/caremesh/logging"
)

// SmartDeviceOptions configure the device bridge agent.
type SmartDeviceOptions struct {
	Logger logging.Logger
}

// SmartDevice bridges the pipeline into the device subsystem. The action is
// driven by context metadata: a vitals payload streams into the registry
// (with its synchronous emergency evaluation), a scan request reads a scoped
// device view. Sessions without a device id pass through untouched.
type SmartDevice struct {
	BaseAgent

	registry *device.Registry
}

// NewSmartDevice constructs the bridge over an existing registry.
func NewSmartDevice(registry *device.Registry, optFns ...func(o *SmartDeviceOptions)) *SmartDevice {
	opts := SmartDeviceOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &SmartDevice{BaseAgent: NewBaseAgent(NameSmartDevice, opts.Logger), registry: registry}
}

// Process implements core.Agent.
func (a *SmartDevice) Process(ctx context.Context, wctx *core.WorkflowContext) (core.Result, error) {
	deviceID := wctx.MetaString("device_id")
	if deviceID == "" {
		return core.Result{}.WithField("device_status", "skipped"), nil
	}

	if wctx.Type == core.WorkflowDeviceScan || wctx.MetaString("device_action") == "scan" {
		return a.scan(ctx, wctx, deviceID)
	}

	vitals := wctx.MetaMap("vital_signs")
	var (
		eval device.Evaluation
		err  error
	)
	if len(vitals) > 0 {
		eval, err = a.registry.UpdateVitals(ctx, deviceID, vitals)
	} else {
		eval, err = a.registry.CheckEmergency(ctx, deviceID)
	}
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			a.Logger().Warn("unknown device session=%s device=%s", wctx.SessionID, deviceID)
			return core.Result{}.WithField("device_status", "unknown_device"), nil
		}
		return core.Result{}, fmt.Errorf("device evaluation failed: %w", err)
	}

	result := core.Result{}.
		WithField("device_status", "evaluated").
		WithField("device_emergency", eval.IsEmergency).
		WithField("device_conditions", eval.Conditions)
	if eval.IsEmergency {
		result.EmergencyLevel = core.LevelCritical
		result.MedicalCondition = "device-detected emergency"
	}

	return result, nil
}

func (a *SmartDevice) scan(ctx context.Context, wctx *core.WorkflowContext, deviceID string) (core.Result, error) {
	scanType := device.ScanType(wctx.MetaString("scan_type"))
	if scanType == "" {
		scanType = device.ScanDeviceInfo
	}

	res, err := a.registry.Scan(ctx, device.ScanRequest{
		DoctorID: wctx.MetaString("doctor_id"),
		DeviceID: deviceID,
		Type:     scanType,
	})
	if err != nil {
		if errors.Is(err, device.ErrAccessDenied) {
			return core.Result{}.WithField("device_status", "scan_denied"), nil
		}
		return core.Result{}, fmt.Errorf("device scan failed: %w", err)
	}

	return core.Result{}.
		WithField("device_status", "scanned").
		WithField("scan_id", res.ScanID).
		WithField("scan_result", res), nil
}

// EmergencyProcess implements core.Agent: forces the contact fan-out for the
// session's device regardless of current vitals.
func (a *SmartDevice) EmergencyProcess(ctx context.Context, wctx *core.WorkflowContext, override map[string]any) (core.Result, error) {
	deviceID := wctx.MetaString("device_id")
	if deviceID == "" {
		return core.Result{}.WithField("device_status", "skipped"), nil
	}

	reason, _ := override["reason"].(string)
	if reason == "" {
		reason = "emergency escalation"
	}

	delivered, err := a.registry.NotifyContacts(ctx, deviceID, "Emergency override: "+reason, "emergency_override")
	if err != nil {
		a.Logger().Error("override fan-out failed device=%s: %v", deviceID, err)
		return core.Result{}.WithField("device_status", "notify_failed"), nil
	}

	return core.Result{}.
		WithField("device_status", "contacts_notified").
		WithField("contacts_notified", delivered), nil
}

// HealthCheck implements core.Agent.
func (a *SmartDevice) HealthCheck(context.Context) error {
	if a.registry == nil {
		return errors.New("device registry not configured")
	}
	return nil
}
