// pkg/orchestrator/state.go

package orchestrator

// State names one step of the load pipeline. Steps execute strictly in
// order within one run; Failed is terminal and reachable from any step.
type State string

const (
	StateInit                  State = "init"
	StateConfigLoaded          State = "config_loaded"
	StateRemoteFetchAttempted  State = "remote_fetch_attempted"
	StateRemoteSkipped         State = "remote_skipped"
	StateLocalFallbackAttempt  State = "local_fallback_attempted"
	StateLocalSkipped          State = "local_skipped"
	StateValidated             State = "validated"
	StateDone                  State = "done"
	StateFailed                State = "failed"
)
