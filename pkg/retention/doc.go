// Package retention defines the records, enumerations and error kinds shared by
// the retention engine.
//
// A Policy is an administrator-defined rule (expiry action, allowed periods,
// notification lead time) that is assigned to one or more group folders. A
// FileRetention binds one policy's terms to a single file or folder and carries
// the computed expiry date. Every real attempt to act on an expired record is
// appended to the processing log as a ProcessingLogEntry.
//
// # Lifecycle
//
// A FileRetention moves through these states:
//
//	active --(set again)--------------> active
//	active --(claimed by a scan)------> processing
//	processing --(action succeeded)---> processed (terminal)
//	processing --(action failed)------> active (retried on the next scan)
//	active --(removed)----------------> [deleted]
//
// # Inheritance
//
// While an item carries an active retention, no descendant of that item may
// acquire a retention of its own. See package hierarchy.
//
// # Storage
//
// Persistence is expressed through the Store interface; package storage
// provides SQL and in-memory implementations.
package retention
