package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/triviaduel/backend/internal/config"
	"github.com/triviaduel/backend/internal/models"
	"github.com/triviaduel/backend/internal/trivia"
)

// TrainingQuestions returns a formatted question batch for solo practice.
// No session token is used; repeats across batches are acceptable here.
func TrainingQuestions(questions *trivia.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		batch, err := questions.Questions(c.Request.Context(), "")
		if err != nil {
			log.Printf("[TRAINING] question fetch failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "question provider unavailable"})
			return
		}

		formatted, _ := trivia.Format(batch, cfg.QuestionMaxDurationSeconds)
		c.JSON(http.StatusOK, gin.H{"questions": formatted})
	}
}

// SaveTraining records a completed training session as a TRAINING game with
// a single UserGame row
func SaveTraining(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := identity(c)
		if !ok {
			return
		}

		var rank int
		if err := db.Get(&rank, `SELECT rank FROM users WHERE id=$1`, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		tx, err := db.Beginx()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		var gameID int64
		if err := tx.QueryRowx(`INSERT INTO games (type, timestamp) VALUES ($1, NOW()) RETURNING id`,
			models.GameTypeTraining).Scan(&gameID); err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if _, err := tx.Exec(
			`INSERT INTO user_games (user_id, opponent_id, game_id, status, rank) VALUES ($1, NULL, $2, $3, $4)`,
			userID, gameID, models.StatusWin, rank); err != nil {
			tx.Rollback()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if err := tx.Commit(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		c.Status(http.StatusCreated)
	}
}

// History lists the caller's completed games, newest first
func History(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := identity(c)
		if !ok {
			return
		}

		var rows []struct {
			Opponent  sql.NullString    `db:"opponent" json:"-"`
			Status    models.GameStatus `db:"status" json:"status"`
			Rank      int               `db:"rank" json:"rank"`
			Type      models.GameType   `db:"type" json:"type"`
			Timestamp time.Time         `db:"timestamp" json:"timestamp"`
		}
		err := db.Select(&rows, `
			SELECT ou.username AS opponent, ug.status, ug.rank, g.type, g.timestamp
			FROM user_games ug
			JOIN games g ON g.id = ug.game_id
			LEFT JOIN users ou ON ou.id = ug.opponent_id
			WHERE ug.user_id = $1
			ORDER BY g.timestamp DESC`, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
			return
		}

		out := make([]gin.H, 0, len(rows))
		for _, r := range rows {
			entry := gin.H{
				"opponent":  nil,
				"status":    r.Status,
				"rank":      r.Rank,
				"type":      r.Type,
				"timestamp": r.Timestamp,
			}
			if r.Opponent.Valid {
				entry["opponent"] = r.Opponent.String
			}
			out = append(out, entry)
		}

		c.JSON(http.StatusOK, out)
	}
}
