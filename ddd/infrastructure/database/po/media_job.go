package po

import "time"

// MediaJob is the persistence row for one transcription job. The result
// payload is stored denormalized as a JSON column so the status endpoint can
// serve it without joins.
type MediaJob struct {
	BaseModel
	JobUUID            string     `gorm:"column:job_uuid;type:varchar(36);uniqueIndex" json:"job_uuid"`
	UserUUID           string     `gorm:"column:user_uuid;type:varchar(36);index" json:"user_uuid"`
	InputPath          string     `gorm:"column:input_path;type:varchar(512)" json:"input_path"`
	MediaKind          string     `gorm:"column:media_kind;type:varchar(10)" json:"media_kind"`
	ExtractedAudioPath *string    `gorm:"column:extracted_audio_path;type:varchar(512)" json:"extracted_audio_path,omitempty"`
	ModelTier          string     `gorm:"column:model_tier;type:varchar(10)" json:"model_tier"`
	Language           *string    `gorm:"column:language;type:varchar(10)" json:"language,omitempty"`
	Diarize            bool       `gorm:"column:diarize;type:tinyint(1);default:0" json:"diarize"`
	MinSpeakers        int        `gorm:"column:min_speakers;type:int;default:0" json:"min_speakers"`
	MaxSpeakers        int        `gorm:"column:max_speakers;type:int;default:0" json:"max_speakers"`
	Status             string     `gorm:"column:status;type:varchar(20);index" json:"status"`
	ErrorMessage       string     `gorm:"column:error_message;type:varchar(1024)" json:"error_message"`
	RetryCount         int        `gorm:"column:retry_count;type:int;default:0" json:"retry_count"`
	NextAttemptAt      *time.Time `gorm:"column:next_attempt_at;type:timestamp;index" json:"next_attempt_at,omitempty"`
	ResultJSON         *string    `gorm:"column:result_json;type:json" json:"result_json,omitempty"`
	ProcessingTime     *float64   `gorm:"column:processing_time;type:double" json:"processing_time,omitempty"`
}

// TableName pins the table name.
func (MediaJob) TableName() string {
	return "media_jobs"
}
