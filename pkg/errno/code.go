package errno

// code=0 request succeeded
// code=4xx client errors
// code=5xx server errors
// code=2xxxx business errors

type Errno struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrInvalidParam = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrNotFound     = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}

	// business error codes
	ErrMissingParam        = &Errno{Code: 20001, Message: "Missing required parameter"}
	ErrJobNotFound         = &Errno{Code: 20002, Message: "Media job not found"}
	ErrInvalidJobStatus    = &Errno{Code: 20003, Message: "Invalid job status"}
	ErrUnsupportedMedia    = &Errno{Code: 20004, Message: "Unsupported media format"}
	ErrUserUUIDRequired    = &Errno{Code: 20005, Message: "User UUID is required"}
	ErrInputPathRequired   = &Errno{Code: 20006, Message: "Input path is required"}
	ErrInvalidModelTier    = &Errno{Code: 20007, Message: "Invalid model tier"}
	ErrJobNotReady         = &Errno{Code: 20008, Message: "Transcription is not ready yet"}
	ErrQueueUnavailable    = &Errno{Code: 20009, Message: "Job queue is unavailable"}
	ErrTierNotEntitled     = &Errno{Code: 20010, Message: "Requested model tier exceeds plan"}
	ErrDiarizationDisabled = &Errno{Code: 20011, Message: "Speaker diarization is not included in plan"}
)
