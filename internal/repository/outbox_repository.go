package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hungbv115/education-backend/pkg/database"
)

// OutboxMessage is a queued notification awaiting delivery. Account mutations
// enqueue rows here so a transient mail failure cannot strand the mutation;
// the dispatch worker retries until MaxAttempts.
type OutboxMessage struct {
	ID          string     `db:"id"`
	Recipient   string     `db:"recipient"`
	Subject     string     `db:"subject"`
	Body        string     `db:"body"`
	Attempts    int        `db:"attempts"`
	LastError   *string    `db:"last_error"`
	SentAt      *time.Time `db:"sent_at"`
	ClaimedAt   *time.Time `db:"claimed_at"`
	CreatedAt   time.Time  `db:"created_at"`
	NextAttempt time.Time  `db:"next_attempt_at"`
}

// claimLease bounds how long a claimed message stays invisible to other
// workers. A worker that dies mid-dispatch loses its claim after the lease
// and the message becomes claimable again.
const claimLease = time.Minute

// outboxRepository implements OutboxRepository interface
type outboxRepository struct {
	db *database.Postgres
}

// NewOutboxRepository creates a new notification outbox repository
func NewOutboxRepository(db *database.Postgres) OutboxRepository {
	return &outboxRepository{db: db}
}

// Enqueue stores a notification for asynchronous delivery
func (r *outboxRepository) Enqueue(ctx context.Context, msg *OutboxMessage) error {
	query := `
		INSERT INTO notification_outbox (id, recipient, subject, body, attempts, created_at, next_attempt_at)
		VALUES ($1, $2, $3, $4, 0, $5, $5)
	`

	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	_, err := r.db.DB.ExecContext(ctx, query,
		msg.ID,
		msg.Recipient,
		msg.Subject,
		msg.Body,
		msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return nil
}

// ClaimPending stamps and returns up to limit unsent, due messages with fewer
// than maxAttempts delivery attempts, oldest first. The claim is a single
// UPDATE: the stamp persists past the statement, so a second worker cannot
// claim the same rows until the lease runs out. FOR UPDATE SKIP LOCKED in the
// inner select keeps two simultaneous claims from blocking on each other.
func (r *outboxRepository) ClaimPending(ctx context.Context, limit, maxAttempts int) ([]*OutboxMessage, error) {
	query := `
		UPDATE notification_outbox
		SET claimed_at = $3
		WHERE id IN (
			SELECT id
			FROM notification_outbox
			WHERE sent_at IS NULL
			  AND attempts < $2
			  AND next_attempt_at <= $3
			  AND (claimed_at IS NULL OR claimed_at <= $4)
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id, recipient, subject, body, attempts, last_error, sent_at, claimed_at, created_at, next_attempt_at
	`

	now := time.Now()
	rows, err := r.db.DB.QueryContext(ctx, query, limit, maxAttempts, now, now.Add(-claimLease))
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending notifications: %w", err)
	}
	defer rows.Close()

	var messages []*OutboxMessage
	for rows.Next() {
		msg := &OutboxMessage{}
		var lastError sql.NullString
		var sentAt, claimedAt sql.NullTime

		err := rows.Scan(
			&msg.ID,
			&msg.Recipient,
			&msg.Subject,
			&msg.Body,
			&msg.Attempts,
			&lastError,
			&sentAt,
			&claimedAt,
			&msg.CreatedAt,
			&msg.NextAttempt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan outbox message: %w", err)
		}

		if lastError.Valid {
			msg.LastError = &lastError.String
		}
		if sentAt.Valid {
			msg.SentAt = &sentAt.Time
		}
		if claimedAt.Valid {
			msg.ClaimedAt = &claimedAt.Time
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate outbox messages: %w", err)
	}

	return messages, nil
}

// MarkSent records a successful delivery
func (r *outboxRepository) MarkSent(ctx context.Context, id string) error {
	query := `
		UPDATE notification_outbox
		SET sent_at = $2, attempts = attempts + 1, last_error = NULL
		WHERE id = $1
	`

	_, err := r.db.DB.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	return nil
}

// MarkFailed records a failed delivery attempt, releases the claim and backs
// off the next one
func (r *outboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `
		UPDATE notification_outbox
		SET attempts = attempts + 1,
		    last_error = $2,
		    next_attempt_at = $3,
		    claimed_at = NULL
		WHERE id = $1
	`

	// Linear backoff, one minute per accumulated attempt
	next := time.Now().Add(time.Minute)

	_, err := r.db.DB.ExecContext(ctx, query, id, reason, next)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	return nil
}
