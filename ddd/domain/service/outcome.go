package service

// Action is the explicit decision a stage hands back to the worker. Stages
// never raise a "retry me" signal through the call stack; the worker alone
// interprets the decision and schedules.
type Action int

const (
	// ActionDone means the stage finished, including no-op cases (job deleted
	// out-of-band, lost claim race, already terminal).
	ActionDone Action = iota
	// ActionRetry means a transient failure: the worker schedules a backoff
	// retry or fails the job when the budget is exhausted.
	ActionRetry
	// ActionFail means a terminal failure (input error, configuration defect);
	// retrying cannot change the outcome.
	ActionFail
)

// Outcome reports how a stage execution ended.
type Outcome struct {
	Action     Action
	JobUUID    string
	RetryCount int // attempts consumed so far, for exhaustion checks
	Err        error

	// EnqueueProcessing asks the worker to enqueue the transcription stage
	// (set by a successful extraction).
	EnqueueProcessing bool
}

func done(jobUUID string) Outcome {
	return Outcome{Action: ActionDone, JobUUID: jobUUID}
}

func retryable(jobUUID string, retryCount int, err error) Outcome {
	return Outcome{Action: ActionRetry, JobUUID: jobUUID, RetryCount: retryCount, Err: err}
}

func terminal(jobUUID string, err error) Outcome {
	return Outcome{Action: ActionFail, JobUUID: jobUUID, Err: err}
}
