package loadtest

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Sessions   int           // Number of sessions to drive
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for history writes
	OutputFile string        // Where to write outcomes; empty skips the file
	Verbose    bool          // Log every session
}

// Plan is the scripted work for one session.
type Plan struct {
	Session string `json:"session"`
	Prompt  string `json:"prompt"`
	Vote    string `json:"vote"`
	Message string `json:"message"`
}

// Outcome is what happened to one plan.
type Outcome struct {
	Plan
	OK      bool          `json:"ok"`
	Step    string        `json:"step,omitempty"`
	Error   string        `json:"error,omitempty"`
	ModelA  string        `json:"modelA,omitempty"`
	ModelB  string        `json:"modelB,omitempty"`
	Demo    bool          `json:"demo,omitempty"`
	Latency time.Duration `json:"latency"`
}

// Stats holds run statistics.
type Stats struct {
	Sessions       int
	BattlesStarted int
	BattlesVoted   int
	ChatsSent      int
	Failed         int
	DemoAnswers    int
	HistoryBattles int
	HistoryChats   int
	CriticalErrors int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
