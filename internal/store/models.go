package store

import (
	"time"

	"gorm.io/gorm"
)

// TTL applies to every row; reads treat rows past ExpiresAt as absent
// even before the sweeper physically removes them.
const TTL = 24 * time.Hour

// Connection is one live transport handle for one attendee in one
// meeting. A reconnect upserts the row, so at most one exists per
// (meeting, attendee).
type Connection struct {
	MeetingID    string    `gorm:"primaryKey;size:128"`
	AttendeeID   string    `gorm:"primaryKey;size:128"`
	ConnectionID string    `gorm:"size:128;not null"`
	ExpiresAt    time.Time `gorm:"index;not null"`
}

// Game is one play-through scoped to a single meeting. The admin,
// turn order, prompt assignment and round number are stored explicitly
// rather than re-derived from live registry scans or message payloads.
type Game struct {
	ID          string    `gorm:"primaryKey;size:64"`
	MeetingID   string    `gorm:"uniqueIndex;size:128;not null"`
	AdminID     string    `gorm:"size:128;not null"`
	TurnOrder   string    `gorm:"type:text;not null"` // JSON array of attendee ids
	RoundNumber int       `gorm:"not null"`
	Completed   bool      `gorm:"not null;default:false"`
	ExpiresAt   time.Time `gorm:"index;not null"`
}

// GameParticipant is the durable (game, attendee) projection: the
// secret movie assigned to that attendee's round plus their score.
type GameParticipant struct {
	GameID     string    `gorm:"primaryKey;size:64"`
	AttendeeID string    `gorm:"primaryKey;size:128"`
	Movie      string    `gorm:"size:256;not null"`
	Points     int       `gorm:"not null;default:0"`
	ExpiresAt  time.Time `gorm:"index;not null"`
}

// RosterEntry maps an attendee to a display name. Written at room join
// time; the router only ever reads it.
type RosterEntry struct {
	MeetingID  string    `gorm:"primaryKey;size:128"`
	AttendeeID string    `gorm:"primaryKey;size:128"`
	Name       string    `gorm:"size:256;not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Connection{}, &Game{}, &GameParticipant{}, &RosterEntry{})
}
