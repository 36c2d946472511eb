package game

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/triviaduel/backend/internal/models"
)

// Repository is the sqlx-backed GameRecorder.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) User(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, `SELECT id, username, password, rank, created_at FROM users WHERE id=$1`, id); err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &u, nil
}

func (r *Repository) UpdateUserRank(ctx context.Context, id int64, rank int) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET rank=$1 WHERE id=$2`, rank, id); err != nil {
		return fmt.Errorf("update rank for user %d: %w", id, err)
	}
	return nil
}

// SaveMultiplayerGame writes the Game row and both UserGame rows in one
// transaction.
func (r *Repository) SaveMultiplayerGame(ctx context.Context, gameType models.GameType, entries [2]GameEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	var gameID int64
	if err := tx.QueryRowxContext(ctx, `INSERT INTO games (type, timestamp) VALUES ($1, NOW()) RETURNING id`, gameType).Scan(&gameID); err != nil {
		tx.Rollback()
		return fmt.Errorf("insert game: %w", err)
	}

	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_games (user_id, opponent_id, game_id, status, rank) VALUES ($1, $2, $3, $4, $5)`,
			entry.UserID, entry.OpponentID, gameID, entry.Status, entry.Rank,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert user_game for user %d: %w", entry.UserID, err)
		}
	}

	return tx.Commit()
}
