package domain

import "time"

// ReportType enumerates the six report categories the moderation
// fan-out understands.
type ReportType int

const (
	ReportAimbot ReportType = 1
	ReportWallhack ReportType = 2
	ReportSpeedhackOther ReportType = 3
	ReportGriefing ReportType = 4
	ReportTextAbuse ReportType = 5
	ReportVoiceAbuse ReportType = 6
)

// CommendType enumerates the three commendation categories.
type CommendType int

const (
	CommendFriendly CommendType = 1
	CommendTeaching CommendType = 2
	CommendLeader   CommendType = 3
)

// ReportRecord is a persisted abuse report.
type ReportRecord struct {
	Sender    uint64
	Receiver  uint64
	Type      ReportType
	MatchID   uint64
	CreatedAt time.Time
}

// CommendRecord is a persisted commendation.
type CommendRecord struct {
	Sender    uint64
	Receiver  uint64
	Type      CommendType
	CreatedAt time.Time
}

// CommendFlags is the sender→target commendation state within the
// rolling 3-month window used by the commend flow.
type CommendFlags struct {
	Friendly bool
	Teaching bool
	Leader   bool
}

// ReportData is the payload handed to the moderation fan-out (C8) on a
// successful report insert, grounded on discord_notifier.hpp's
// ReportData struct.
type ReportData struct {
	SenderSteamID   uint64
	ReceiverSteamID uint64
	ReportType      ReportType
	MatchID         uint64
	SenderName      string
	ReceiverName    string
}

// Cooldown is an unacknowledged moderation cooldown surfaced in the
// hello response.
type Cooldown struct {
	Reason          string
	SecondsRemaining int64
}
