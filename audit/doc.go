// Package audit provides AuditSink implementations for completed workflow
// sessions and emergency alerts. The in-memory sink suits tests and
// single-process prototypes; the redis subpackage offers a durable variant.
package audit
