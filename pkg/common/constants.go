package common

import "time"

const (
	RedisKeyLastPrice = "last_price:%s"
	RedisKeyRunLock   = "advisor:run:lock"

	RunLockTTL = 30 * time.Minute

	RunStatusCompleted = "COMPLETED"
	RunStatusAborted   = "ABORTED"
	RunStatusFailed    = "FAILED"

	RunTriggerSchedule = "schedule"
	RunTriggerManual   = "manual"
)
