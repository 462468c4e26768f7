package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/certiq/certiq-backend/internal/config"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	ScorePollTimeout = 1 * time.Second
)

// scorePayload is the queue message produced at exam submission.
type scorePayload struct {
	CandidateID string `json:"candidate_id"`
	ExamID      string `json:"exam_id"`
	AccountID   string `json:"account_id"`
}

// ─── Producer ────────────────────────────────────────────────────────

// Queue enqueues finished candidates for score aggregation.
type Queue struct {
	rdb *redis.Client
}

// NewQueue creates a score aggregation queue producer.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// EnqueueScoreAggregation pushes a finished candidate onto the queue.
func (q *Queue) EnqueueScoreAggregation(ctx context.Context, candidateID, examID, accountID uuid.UUID) error {
	raw, err := json.Marshal(scorePayload{
		CandidateID: candidateID.String(),
		ExamID:      examID.String(),
		AccountID:   accountID.String(),
	})
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.AggregateScoresQueue, raw).Err()
}

// ─── Consumer ────────────────────────────────────────────────────────

// ScoreWorker consumes the aggregation queue and writes each finished
// candidate's total score. Aggregation always recomputes from the
// submission tables, so replaying a message is harmless.
type ScoreWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewScoreWorker creates a new ScoreWorker.
func NewScoreWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ScoreWorker {
	return &ScoreWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "score_worker").Logger(),
	}
}

// Start runs the worker loop until ctx is cancelled, then drains the
// queue once without blocking before returning.
func (w *ScoreWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoreWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Draining remaining messages...")
			w.drain()
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.AggregateScoresQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			w.handle(ctx, []byte(item[1]))
		}
	}
}

// drain processes whatever is already queued, without blocking. Uses a
// fresh context because the loop context is already cancelled.
func (w *ScoreWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.AggregateScoresQueue).Result()
		if err != nil {
			if err != redis.Nil {
				w.log.Error().Err(err).Msg("Drain LPop error")
			}
			return
		}
		w.handle(ctx, []byte(raw))
	}
}

func (w *ScoreWorker) handle(ctx context.Context, raw []byte) {
	var p scorePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		w.log.Error().Err(err).Msg("Invalid JSON payload")
		return
	}

	if err := w.aggregate(ctx, &p); err != nil {
		w.log.Error().Err(err).
			Str("candidate_id", p.CandidateID).
			Msg("Score aggregation failed, requeueing")
		w.rdb.RPush(ctx, config.WorkerKey.AggregateScoresQueue, raw)
		return
	}

	w.log.Info().
		Str("candidate_id", p.CandidateID).
		Str("exam_id", p.ExamID).
		Msg("Candidate score aggregated")
}

// aggregate sums the three submission tables into exam_candidates.score.
// Written answers pending review count as zero until a reviewer scores
// them; replaying after review simply raises the total.
func (w *ScoreWorker) aggregate(ctx context.Context, p *scorePayload) error {
	candidateID, err := uuid.Parse(p.CandidateID)
	if err != nil {
		return err
	}
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return err
	}
	accountID, err := uuid.Parse(p.AccountID)
	if err != nil {
		return err
	}

	query := `
		UPDATE exam_candidates
		SET score = (
			SELECT
				COALESCE((
					SELECT SUM(ms.score)
					FROM mcq_submissions ms
					JOIN questions q ON q.id = ms.question_id
					WHERE q.examination_id = $2 AND ms.account_id = $3
				), 0)
				+ COALESCE((
					SELECT SUM(ws.score)
					FROM written_submissions ws
					JOIN questions q ON q.id = ws.question_id
					WHERE q.examination_id = $2 AND ws.account_id = $3
				), 0)
				+ COALESCE((
					SELECT SUM(ps.score)
					FROM problem_submissions ps
					JOIN questions q ON q.id = ps.question_id
					WHERE q.examination_id = $2 AND ps.account_id = $3
				), 0)
		),
		updated_at = NOW()
		WHERE id = $1
	`

	_, err = w.pool.Exec(ctx, query, candidateID, examID, accountID)
	return err
}
