package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameStore persists games and their per-attendee scores.
type GameStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGameStore(db *gorm.DB) *GameStore {
	return &GameStore{db: db, now: time.Now}
}

// GameRecord is the decoded view of a Game row.
type GameRecord struct {
	ID          string
	MeetingID   string
	AdminID     string
	TurnOrder   []string
	RoundNumber int
	Completed   bool
}

// CreateGame writes the game row and one participant row per
// (attendee, movie) pair inside a single transaction, all sharing one
// expiry. The unique index on meeting_id is the check-and-set that
// makes concurrent start_game requests collapse to one game:
// a conflicting insert yields ErrGameExists and writes nothing.
func (s *GameStore) CreateGame(ctx context.Context, rec GameRecord, movies map[string]string) error {
	order, err := json.Marshal(rec.TurnOrder)
	if err != nil {
		return fmt.Errorf("%w: encode turn order: %v", ErrStoreUnavailable, err)
	}
	expiry := s.now().Add(TTL)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "meeting_id"}},
			DoNothing: true,
		}).Create(&Game{
			ID:          rec.ID,
			MeetingID:   rec.MeetingID,
			AdminID:     rec.AdminID,
			TurnOrder:   string(order),
			RoundNumber: rec.RoundNumber,
			ExpiresAt:   expiry,
		})
		if res.Error != nil {
			return fmt.Errorf("%w: create game: %v", ErrStoreUnavailable, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrGameExists
		}

		participants := make([]GameParticipant, 0, len(movies))
		for attendee, movie := range movies {
			participants = append(participants, GameParticipant{
				GameID:     rec.ID,
				AttendeeID: attendee,
				Movie:      movie,
				ExpiresAt:  expiry,
			})
		}
		if err := tx.Create(&participants).Error; err != nil {
			return fmt.Errorf("%w: create participants: %v", ErrStoreUnavailable, err)
		}
		return nil
	})
}

// GetGameByMeeting returns the unexpired game for a meeting, if any.
func (s *GameStore) GetGameByMeeting(ctx context.Context, meetingID string) (GameRecord, error) {
	var row Game
	err := s.db.WithContext(ctx).
		Where("meeting_id = ? AND expires_at > ?", meetingID, s.now()).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GameRecord{}, ErrGameNotFound
	}
	if err != nil {
		return GameRecord{}, fmt.Errorf("%w: get game: %v", ErrStoreUnavailable, err)
	}
	return decodeGame(row)
}

// SetRound persists an accepted round advancement.
func (s *GameStore) SetRound(ctx context.Context, gameID string, round int) error {
	err := s.db.WithContext(ctx).Model(&Game{}).
		Where("id = ?", gameID).
		Update("round_number", round).Error
	if err != nil {
		return fmt.Errorf("%w: set round: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// MarkComplete makes the game inert after its final round.
func (s *GameStore) MarkComplete(ctx context.Context, gameID string) error {
	err := s.db.WithContext(ctx).Model(&Game{}).
		Where("id = ?", gameID).
		Update("completed", true).Error
	if err != nil {
		return fmt.Errorf("%w: mark complete: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IncrementScore atomically adds delta to one attendee's score.
// Different attendees in the same game never contend; a duplicate
// guess by the same attendee is last-write-wins, which is acceptable
// since accepted guesses are one-shot per round. An attendee with no
// row, such as someone who joined after game start, yields
// ErrNoSuchParticipant so callers do not announce points that were
// never recorded.
func (s *GameStore) IncrementScore(ctx context.Context, gameID, attendeeID string, delta int) error {
	res := s.db.WithContext(ctx).Model(&GameParticipant{}).
		Where("game_id = ? AND attendee_id = ?", gameID, attendeeID).
		Update("points", gorm.Expr("points + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("%w: increment score: %v", ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoSuchParticipant
	}
	return nil
}

// Snapshot returns every participant row of a game, for leaderboard
// computation.
func (s *GameStore) Snapshot(ctx context.Context, gameID string) ([]GameParticipant, error) {
	var rows []GameParticipant
	err := s.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("attendee_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot: %v", ErrStoreUnavailable, err)
	}
	return rows, nil
}

func decodeGame(row Game) (GameRecord, error) {
	var order []string
	if err := json.Unmarshal([]byte(row.TurnOrder), &order); err != nil {
		return GameRecord{}, fmt.Errorf("%w: decode turn order: %v", ErrStoreUnavailable, err)
	}
	return GameRecord{
		ID:          row.ID,
		MeetingID:   row.MeetingID,
		AdminID:     row.AdminID,
		TurnOrder:   order,
		RoundNumber: row.RoundNumber,
		Completed:   row.Completed,
	}, nil
}
