package consent

const (
	TaskSweepStatusDate   = "consent:sweep:status_date"
	TaskSweepOneOffUsage  = "consent:sweep:one_off_usage"
	TaskSweepNotConfirmed = "consent:sweep:not_confirmed"
)
