// Package scanner finds expired retention records and hands them to the
// action executor.
//
// A scan selects every record that expired on or before today, whose policy
// has auto_process enabled, and that is either active or held by a claim
// older than the claim TTL. Each record is processed in isolation:
//
//  1. claim the record (active to processing, a conditional update)
//  2. execute the policy action through the executor
//  3. mark it processed on success, or release it back to active on failure
//  4. write a processing log entry through the audit logger
//
// A record whose claim is lost to a concurrent scan is skipped. A failed
// record stays active and is retried on the next run.
//
// Dry runs only describe what would happen. They never claim records, never
// touch the file tree and never write processing logs.
//
// ProcessRetentionActions never returns an error. Every failure, including a
// failed selection, is reported as an item of Summary.Errors.
//
// NotifyUpcoming sends one notice per record once its expire date minus its
// notification lead time has been reached.
//
// Scheduling is injected through SchedulerClient. CronScheduler implements it
// on top of github.com/robfig/cron/v3, and Register wires the scan and the
// notifier into a client according to the configuration.
package scanner
