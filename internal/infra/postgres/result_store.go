package postgres

import (
	"context"
	"errors"
	"fmt"

	"kiosk-quiz-service/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const uniqueViolation = "23505"

// ResultStore keeps participants, their single result row and the answers behind it.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) CreateParticipant(ctx context.Context, p domain.Participant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO participants (name, regno, college, dept, year) VALUES ($1, $2, $3, $4, $5)`,
		p.Name, p.Regno, p.College, p.Department, p.Year)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyRegistered
		}
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *ResultStore) GetParticipant(ctx context.Context, regno string) (domain.Participant, error) {
	var p domain.Participant
	err := s.pool.QueryRow(ctx,
		`SELECT name, regno, college, dept, year FROM participants WHERE regno=$1`, regno).
		Scan(&p.Name, &p.Regno, &p.College, &p.Department, &p.Year)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("get participant: %w", err)
	}
	return p, nil
}

// SaveResult upserts the participant's result and replaces its answers atomically.
func (s *ResultStore) SaveResult(ctx context.Context, result domain.Result, answers []domain.AnswerEntry) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var resultID int
		err := tx.QueryRow(ctx, `
			INSERT INTO results (participant_id, correct, points, avg_time)
			SELECT id, $2, $3, $4 FROM participants WHERE regno=$1
			ON CONFLICT (participant_id) DO UPDATE
			SET correct=EXCLUDED.correct, points=EXCLUDED.points, avg_time=EXCLUDED.avg_time
			RETURNING id`,
			result.Regno, result.Correct, result.Points, result.AvgTime).Scan(&resultID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrParticipantNotFound
		}
		if err != nil {
			return fmt.Errorf("upsert result: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM answers WHERE result_id=$1`, resultID); err != nil {
			return fmt.Errorf("clear answers: %w", err)
		}
		if len(answers) == 0 {
			return nil
		}
		rows := make([][]interface{}, 0, len(answers))
		for _, a := range answers {
			var timeTaken *float64
			if a.TimeSec != nil {
				v := float64(*a.TimeSec)
				timeTaken = &v
			}
			rows = append(rows, []interface{}{resultID, a.QuestionID, a.Selected, timeTaken})
		}
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"answers"},
			[]string{"result_id", "question_id", "answer", "time_taken"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
		return nil
	})
}

// TopResults ranks by points desc, average time asc, then regno for a stable order.
func (s *ResultStore) TopResults(ctx context.Context, limit int) ([]domain.LeaderboardRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT p.name, p.regno, r.correct, r.points, r.avg_time
		FROM results r JOIN participants p ON p.id = r.participant_id
		ORDER BY r.points DESC, r.avg_time ASC, p.regno ASC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top results: %w", err)
	}
	defer rows.Close()

	board := []domain.LeaderboardRow{}
	for rows.Next() {
		var row domain.LeaderboardRow
		if err := rows.Scan(&row.Name, &row.Regno, &row.Correct, &row.Points, &row.AvgTime); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		board = append(board, row)
	}
	return board, rows.Err()
}
