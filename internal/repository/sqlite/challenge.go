package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/habitflow/internal/apperror"
	"github.com/sakif/habitflow/internal/model"
	"github.com/sakif/habitflow/internal/repository"
)

// compile-time check that *DB implements repository.ChallengeRepository
var _ repository.ChallengeRepository = (*DB)(nil)

const challengeColumns = `c.id, c.name, c.description, c.creator_id, c.habit_id,
	c.frequency, c.duration, c.start_date, c.end_date, c.rewards, c.is_active,
	c.created_at`

func scanChallenge(row interface{ Scan(...any) error }) (*model.Challenge, error) {
	var c model.Challenge
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &c.CreatorID, &c.HabitID,
		&c.Frequency, &c.Duration, &c.StartDate, &c.EndDate, &c.Rewards,
		&c.IsActive, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateChallenge inserts the challenge and its initial participants
// (normally just the creator) in one transaction.
func (db *DB) CreateChallenge(ctx context.Context, challenge *model.Challenge) error {
	challenge.ID = xid.New().String()
	challenge.CreatedAt = time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning challenge create: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO challenges (id, name, description, creator_id, habit_id,
			frequency, duration, start_date, end_date, rewards, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		challenge.ID, challenge.Name, challenge.Description, challenge.CreatorID,
		challenge.HabitID, challenge.Frequency, challenge.Duration,
		challenge.StartDate, challenge.EndDate, challenge.Rewards,
		challenge.IsActive, challenge.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating challenge: %w", err)
	}

	for _, p := range challenge.Participants {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO challenge_participants
				(challenge_id, user_id, joined_at, completions, score)
			 VALUES (?, ?, ?, ?, ?)`,
			challenge.ID, p.UserID, p.JoinedAt, p.Completions, p.Score,
		)
		if err != nil {
			return fmt.Errorf("sqlite: adding initial participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing challenge create: %w", err)
	}
	return nil
}

func (db *DB) GetChallengeByID(ctx context.Context, id string) (*model.Challenge, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges c WHERE c.id = ?`, id)
	challenge, err := scanChallenge(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("challenge", id)
		}
		return nil, fmt.Errorf("sqlite: getting challenge %s: %w", id, err)
	}

	if err := db.loadParticipants(ctx, challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

func (db *DB) ListActiveChallenges(ctx context.Context) ([]model.Challenge, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges c
		 WHERE c.is_active = 1
		 ORDER BY c.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing active challenges: %w", err)
	}
	defer rows.Close()
	return db.collectChallenges(ctx, rows)
}

func (db *DB) ListChallengesByParticipant(ctx context.Context, userID string) ([]model.Challenge, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+challengeColumns+` FROM challenges c
		 JOIN challenge_participants p ON p.challenge_id = c.id
		 WHERE p.user_id = ?
		 ORDER BY c.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing challenges for user: %w", err)
	}
	defer rows.Close()
	return db.collectChallenges(ctx, rows)
}

func (db *DB) collectChallenges(ctx context.Context, rows *sql.Rows) ([]model.Challenge, error) {
	challenges := make([]model.Challenge, 0, 16)
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning challenge row: %w", err)
		}
		challenges = append(challenges, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating challenges: %w", err)
	}

	for i := range challenges {
		if err := db.loadParticipants(ctx, &challenges[i]); err != nil {
			return nil, err
		}
	}
	return challenges, nil
}

// loadParticipants fills in the participant list, joined with the user
// profile fields the clients display (username, avatar), score descending.
func (db *DB) loadParticipants(ctx context.Context, challenge *model.Challenge) error {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT p.user_id, u.username, u.avatar_url, p.joined_at, p.completions, p.score
		 FROM challenge_participants p
		 JOIN users u ON u.id = p.user_id
		 WHERE p.challenge_id = ?
		 ORDER BY p.score DESC, p.joined_at ASC`,
		challenge.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: loading participants for %s: %w", challenge.ID, err)
	}
	defer rows.Close()

	challenge.Participants = challenge.Participants[:0]
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.UserID, &p.Username, &p.AvatarURL,
			&p.JoinedAt, &p.Completions, &p.Score); err != nil {
			return fmt.Errorf("sqlite: scanning participant row: %w", err)
		}
		challenge.Participants = append(challenge.Participants, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlite: iterating participants: %w", err)
	}
	return nil
}

func (db *DB) AddParticipant(ctx context.Context, challengeID string, p *model.Participant) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO challenge_participants
			(challenge_id, user_id, joined_at, completions, score)
		 VALUES (?, ?, ?, ?, ?)`,
		challengeID, p.UserID, p.JoinedAt, p.Completions, p.Score,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding participant to %s: %w", challengeID, err)
	}
	return nil
}

func (db *DB) UpdateParticipants(ctx context.Context, challengeID string, ps []model.Participant) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning participant update: %w", err)
	}
	defer tx.Rollback()

	for _, p := range ps {
		_, err = tx.ExecContext(ctx,
			`UPDATE challenge_participants
			 SET completions = ?, score = ?
			 WHERE challenge_id = ? AND user_id = ?`,
			p.Completions, p.Score, challengeID, p.UserID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating participant %s: %w", p.UserID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing participant update: %w", err)
	}
	return nil
}

func (db *DB) SetChallengeActive(ctx context.Context, challengeID string, active bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE challenges SET is_active = ? WHERE id = ?`, active, challengeID)
	if err != nil {
		return fmt.Errorf("sqlite: setting challenge %s active=%v: %w", challengeID, active, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("challenge", challengeID)
	}
	return nil
}
