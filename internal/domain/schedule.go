package domain

// ScheduleEntry is a server-declared cron trigger bound to a job name.
type ScheduleEntry struct {
	JobName    string `json:"job_name"`
	CronString string `json:"cron_string"`
	IsActive   bool   `json:"is_active"`
}

// Credentials are read once from the credential store and never rotated
// in-process.
type Credentials struct {
	AccessToken   string
	EncryptionKey []byte
}
