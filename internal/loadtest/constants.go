package loadtest

import "time"

// Defaults applied to a zero Config.
const (
	DefaultBaseURL  = "http://localhost:9080"
	DefaultSessions = 100
	DefaultTimeout  = 30 * time.Second
	DefaultSettle   = 10 * time.Second
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	PercentageMultiplier    = 100
	historyPollInterval     = 100 * time.Millisecond
	directoryPermission     = 0o750
)

// Mirrors of the service's history caps.
const (
	battleHistoryLimit = 50
	chatHistoryLimit   = 50
)

const (
	sessionHeader    = "X-Session-ID"
	criticalStatsKey = "SYSTEM_CRITICAL"
	anonymousLabelA  = "نموذج A"
)
