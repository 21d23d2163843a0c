package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/caremesh/caremesh/core"
	"github.com/caremesh/caremesh/logging"
	"github.com/caremesh/caremesh/notify"
)

// RegistryOptions configure a Registry.
type RegistryOptions struct {
	// Fanout delivers emergency and access notifications. Defaults to a
	// log-only fan-out when nil.
	Fanout *notify.Fanout
	// Audit receives one alert entry per detected emergency. Optional.
	Audit core.AuditSink
	// Access gates doctor scans. Defaults to AllowAllPolicy.
	Access AccessPolicy

	Logger logging.Logger
}

// Registry holds all known devices and their alert history. All operations
// are safe for concurrent use; a single mutex guards the device table and the
// alert log, and evaluation plus alert creation happen under it so two
// concurrent updates of the same device cannot both miss a breach.
type Registry struct {
	mu      sync.Mutex
	devices map[string]*Device
	alerts  []Alert

	fanout *notify.Fanout
	audit  core.AuditSink
	access AccessPolicy
	logger logging.Logger
}

// NewRegistry constructs an empty device registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		Access: AllowAllPolicy{},
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Fanout == nil {
		opts.Fanout = notify.New(func(o *notify.Options) { o.Logger = opts.Logger })
	}

	return &Registry{
		devices: make(map[string]*Device),
		fanout:  opts.Fanout,
		audit:   opts.Audit,
		access:  opts.Access,
		logger:  opts.Logger,
	}
}

// Register adds or replaces a device. Device id and patient id are required.
func (r *Registry) Register(d Device) error {
	if d.DeviceID == "" || d.PatientID == "" {
		return ErrInvalidDevice
	}
	if d.LastSync.IsZero() {
		d.LastSync = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices[d.DeviceID] = &d
	r.logger.Info("device registered id=%s patient=%s type=%s", d.DeviceID, d.PatientID, d.DeviceType)

	return nil
}

// Get returns a snapshot copy of a device.
func (r *Registry) Get(deviceID string) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	return snapshotDevice(d), nil
}

// UpdateVitals merges the given readings into the device's vital signs and
// synchronously evaluates the emergency thresholds before returning. When the
// merged vitals breach a bound, exactly one alert is appended and the contact
// fan-out runs to completion as part of this call.
func (r *Registry) UpdateVitals(ctx context.Context, deviceID string, vitals map[string]any) (Evaluation, error) {
	r.mu.Lock()
	d, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return Evaluation{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	if d.Vitals == nil {
		d.Vitals = make(map[string]any, len(vitals))
	}
	for metric, value := range vitals {
		d.Vitals[metric] = value
	}
	d.LastSync = time.Now().UTC()

	eval, alert := r.evaluateLocked(d)
	contacts := append([]notify.Contact(nil), d.Contacts...)
	r.mu.Unlock()

	if eval.IsEmergency {
		r.dispatchAlert(ctx, alert, contacts)
	}

	return eval, nil
}

// CheckEmergency re-evaluates the device's current vitals against its
// thresholds. Like UpdateVitals, a breach appends one alert and triggers the
// fan-out before the call returns.
func (r *Registry) CheckEmergency(ctx context.Context, deviceID string) (Evaluation, error) {
	r.mu.Lock()
	d, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return Evaluation{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}

	eval, alert := r.evaluateLocked(d)
	contacts := append([]notify.Contact(nil), d.Contacts...)
	r.mu.Unlock()

	if eval.IsEmergency {
		r.dispatchAlert(ctx, alert, contacts)
	}

	return eval, nil
}

// evaluateLocked runs the threshold pass and, on a breach, appends exactly
// one alert to the log. Caller holds r.mu.
func (r *Registry) evaluateLocked(d *Device) (Evaluation, Alert) {
	eval := evaluate(d.Vitals, d.Thresholds)
	if !eval.IsEmergency {
		return eval, Alert{}
	}

	alert := Alert{
		AlertID:    core.NewID(),
		DeviceID:   d.DeviceID,
		PatientID:  d.PatientID,
		Conditions: append([]string(nil), eval.Conditions...),
		Timestamp:  eval.CheckedAt,
		Status:     "active",
	}
	r.alerts = append(r.alerts, alert)

	return eval, alert
}

// dispatchAlert runs the contact fan-out and records the alert in the audit
// sink. Sink failures are logged, never propagated.
func (r *Registry) dispatchAlert(ctx context.Context, alert Alert, contacts []notify.Contact) {
	start := time.Now()
	message := fmt.Sprintf("EMERGENCY ALERT for patient %s: %v", alert.PatientID, alert.Conditions)
	delivered := r.fanout.Notify(ctx, contacts, message, "emergency_alert")

	if cl, ok := r.logger.(*logging.CareLogger); ok {
		cl.WithDevice(alert.DeviceID).LogAlertFanout(alert.AlertID, len(contacts), delivered, time.Since(start))
	} else {
		r.logger.Warn("emergency alert id=%s device=%s conditions=%d delivered=%d",
			alert.AlertID, alert.DeviceID, len(alert.Conditions), delivered)
	}

	if r.audit == nil {
		return
	}
	entry := core.AuditEntry{
		Kind:      core.AuditKindAlert,
		RefID:     alert.AlertID,
		Timestamp: alert.Timestamp,
		Data: map[string]any{
			"device_id":  alert.DeviceID,
			"patient_id": alert.PatientID,
			"conditions": alert.Conditions,
			"status":     alert.Status,
			"delivered":  delivered,
		},
	}
	if err := r.audit.Store(ctx, entry); err != nil {
		r.logger.Error("failed to store alert audit entry id=%s: %v", alert.AlertID, err)
	}
}

// NotifyContacts forces a fan-out to the device's emergency contacts without
// a threshold evaluation. Used by emergency overrides where notification must
// happen regardless of current vitals. Returns the delivery count.
func (r *Registry) NotifyContacts(ctx context.Context, deviceID, message, kind string) (int, error) {
	r.mu.Lock()
	d, ok := r.devices[deviceID]
	if !ok {
		r.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	contacts := append([]notify.Contact(nil), d.Contacts...)
	r.mu.Unlock()

	return r.fanout.Notify(ctx, contacts, message, kind), nil
}

// Scan verifies the doctor's access, notifies the device's contacts that the
// device was read, and returns the view selected by the scan type.
func (r *Registry) Scan(ctx context.Context, req ScanRequest) (ScanResult, error) {
	r.mu.Lock()
	d, ok := r.devices[req.DeviceID]
	if !ok {
		r.mu.Unlock()
		return ScanResult{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, req.DeviceID)
	}

	if !r.access.Allow(req.DoctorID, d.PatientID) {
		r.mu.Unlock()
		r.logger.Warn("device scan denied doctor=%s device=%s", req.DoctorID, req.DeviceID)
		return ScanResult{}, fmt.Errorf("%w: doctor %s may not scan device %s", ErrAccessDenied, req.DoctorID, req.DeviceID)
	}

	snap := snapshotDevice(d)
	r.mu.Unlock()

	result := ScanResult{
		ScanID:    core.NewID(),
		PatientID: snap.PatientID,
		ScanTime:  time.Now().UTC(),
	}

	switch req.Type {
	case ScanMedicalHistory:
		result.Reports = snap.Reports
		result.Vitals = snap.Vitals
	case ScanEmergencyContacts:
		result.Contacts = snap.Contacts
	default:
		result.Info = &DeviceInfo{
			DeviceType:      snap.DeviceType,
			DeviceModel:     snap.DeviceModel,
			FirmwareVersion: snap.FirmwareVersion,
			BatteryLevel:    snap.BatteryLevel,
			LastSync:        snap.LastSync,
		}
	}

	message := fmt.Sprintf("Device %s was accessed by doctor %s (%s scan)", req.DeviceID, req.DoctorID, req.Type)
	r.fanout.Notify(ctx, snap.Contacts, message, "device_access")

	r.logger.Info("device scanned id=%s doctor=%s type=%s scan=%s", req.DeviceID, req.DoctorID, req.Type, result.ScanID)

	return result, nil
}

// StoreReport appends a medical report to the device. A missing report id is
// generated. Returns the stored report's id.
func (r *Registry) StoreReport(deviceID string, report Report) (string, error) {
	if report.ReportID == "" {
		report.ReportID = core.NewID()
	}
	if report.ReportDate.IsZero() {
		report.ReportDate = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrDeviceNotFound, deviceID)
	}
	d.Reports = append(d.Reports, report)

	r.logger.Info("report stored device=%s report=%s type=%s", deviceID, report.ReportID, report.ReportType)

	return report.ReportID, nil
}

// Alerts returns a snapshot of the alert log in append order.
func (r *Registry) Alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Alert, len(r.alerts))
	copy(out, r.alerts)

	return out
}

// AlertsForDevice returns the alerts recorded for one device, oldest first.
func (r *Registry) AlertsForDevice(deviceID string) []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Alert
	for _, a := range r.alerts {
		if a.DeviceID == deviceID {
			out = append(out, a)
		}
	}

	return out
}

func snapshotDevice(d *Device) Device {
	snap := *d

	if d.Vitals != nil {
		snap.Vitals = make(map[string]any, len(d.Vitals))
		for k, v := range d.Vitals {
			snap.Vitals[k] = v
		}
	}
	if d.Thresholds != nil {
		snap.Thresholds = make(map[string]any, len(d.Thresholds))
		for k, v := range d.Thresholds {
			snap.Thresholds[k] = v
		}
	}
	snap.Contacts = append([]notify.Contact(nil), d.Contacts...)
	snap.Reports = append([]Report(nil), d.Reports...)

	return snap
}
