// Package notify implements the optional post-run notification hook: a
// run's outcome, decided by ArchiveEngine.RunOnce, is handed to a
// Notifier once the run has finished (§8's Slack-webhook wiring).
package notify

// Provider is the notification contract for a completed run. Every
// method is fire-and-forget from the engine's perspective — a failed
// notification never fails the run itself.
type Provider interface {
	// RunSucceeded reports a run that completed without a table failure.
	// messages carries any per-table warnings collected along the way
	// (skipped tables, non-fatal conditions).
	RunSucceeded(runID string, tablesProcessed int, messages []string) error

	// RunFailed reports a run halted by a table failure.
	RunFailed(runID string, failedTable string, err error, messages []string) error
}

// Ensure Notifier implements Provider.
var _ Provider = (*Notifier)(nil)
