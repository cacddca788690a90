package taskname

// Task type names registered with asynq. Keep them stable: they are part of
// the queue payload contract between pointsd and the sweeper.
const (
	RiskSweepFrequency = "risk:sweep:frequency"
	RiskSweepCluster   = "risk:sweep:cluster"
	RiskSweepBurst     = "risk:sweep:burst"
	NotificationSend   = "notification:send"
)
