// Package device implements the smart-device emergency-detection subsystem:
// a registry of patient devices (vitals, thresholds, emergency contacts,
// medical reports), threshold evaluation over streamed vital signs, and the
// coupled alert/notification path that fires synchronously whenever a
// configured bound is breached.
package device
