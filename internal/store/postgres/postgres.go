// Package postgres stores users, conversations and interpretations in PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/store"
)

// Open creates a pool and verifies connectivity.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Store implements store.Store over a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

func (s *Store) Users() store.Users                     { return &users{pool: s.pool} }
func (s *Store) Conversations() store.Conversations     { return &conversations{pool: s.pool} }
func (s *Store) Interpretations() store.Interpretations { return &interpretations{pool: s.pool} }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close(ctx context.Context) error {
	s.pool.Close()
	return nil
}

// --- Users ---

type users struct{ pool *pgxpool.Pool }

const userColumns = `id, display_name, last_scan_date, scans_today, completed_scans, scans_remaining, created_at, updated_at`

func scanUser(row pgx.Row) (conversation.UsageRecord, error) {
	var u conversation.UsageRecord
	err := row.Scan(&u.UserID, &u.DisplayName, &u.LastScanDate, &u.ScansToday, &u.CompletedScans, &u.ScansRemaining, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (u *users) Get(ctx context.Context, userID string) (conversation.UsageRecord, error) {
	rec, err := scanUser(u.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return conversation.UsageRecord{}, store.ErrNotFound
	}
	return rec, err
}

func (u *users) Create(ctx context.Context, rec conversation.UsageRecord) (conversation.UsageRecord, error) {
	created, err := scanUser(u.pool.QueryRow(ctx, `
        INSERT INTO users (id, display_name, last_scan_date, scans_today, completed_scans, scans_remaining)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO NOTHING
        RETURNING `+userColumns,
		rec.UserID, rec.DisplayName, rec.LastScanDate, rec.ScansToday, rec.CompletedScans, rec.ScansRemaining))
	if errors.Is(err, pgx.ErrNoRows) {
		return conversation.UsageRecord{}, store.ErrAlreadyExists
	}
	return created, err
}

func (u *users) ReserveScan(ctx context.Context, userID, day string, limit int) (conversation.UsageRecord, error) {
	rec, err := scanUser(u.pool.QueryRow(ctx, `
        UPDATE users
        SET scans_today = CASE WHEN last_scan_date = $2 THEN scans_today + 1 ELSE 1 END,
            last_scan_date = $2,
            updated_at = now()
        WHERE id = $1
          AND (last_scan_date <> $2 OR scans_today < $3)
          AND $3 > 0
        RETURNING `+userColumns, userID, day, limit))
	if !errors.Is(err, pgx.ErrNoRows) {
		return rec, err
	}
	var exists bool
	if err := u.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return conversation.UsageRecord{}, err
	}
	if !exists {
		return conversation.UsageRecord{}, store.ErrNotFound
	}
	return conversation.UsageRecord{}, store.ErrQuotaExceeded
}

func (u *users) ReleaseScan(ctx context.Context, userID, day string) error {
	_, err := u.pool.Exec(ctx, `
        UPDATE users
        SET scans_today = scans_today - 1, updated_at = now()
        WHERE id = $1 AND last_scan_date = $2 AND scans_today > 0`, userID, day)
	return err
}

func (u *users) CompleteScan(ctx context.Context, userID string) error {
	tag, err := u.pool.Exec(ctx, `
        UPDATE users
        SET completed_scans = completed_scans + 1,
            scans_remaining = scans_remaining - 1,
            updated_at = now()
        WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- Conversations ---

type conversations struct{ pool *pgxpool.Pool }

const conversationColumns = `id, user_id, messages, continuation_token, revision, created_at, updated_at`

func scanConversation(row pgx.Row) (conversation.Conversation, error) {
	var (
		c   conversation.Conversation
		raw []byte
	)
	if err := row.Scan(&c.ID, &c.UserID, &raw, &c.ContinuationToken, &c.Revision, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return conversation.Conversation{}, err
	}
	if err := json.Unmarshal(raw, &c.Messages); err != nil {
		return conversation.Conversation{}, fmt.Errorf("decode messages: %w", err)
	}
	if c.Messages == nil {
		c.Messages = []conversation.Message{}
	}
	return c, nil
}

func (c *conversations) Get(ctx context.Context, conversationID string) (conversation.Conversation, error) {
	conv, err := scanConversation(c.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, conversationID))
	if errors.Is(err, pgx.ErrNoRows) {
		return conversation.Conversation{}, store.ErrNotFound
	}
	return conv, err
}

func (c *conversations) Save(ctx context.Context, conv conversation.Conversation, expectedRevision int64) (conversation.Conversation, error) {
	msgs := conv.Messages
	if msgs == nil {
		msgs = []conversation.Message{}
	}
	raw, err := json.Marshal(msgs)
	if err != nil {
		return conversation.Conversation{}, fmt.Errorf("encode messages: %w", err)
	}

	var row pgx.Row
	if expectedRevision == 0 {
		row = c.pool.QueryRow(ctx, `
            INSERT INTO conversations (id, user_id, messages, continuation_token, revision)
            VALUES ($1, $2, $3, $4, 1)
            ON CONFLICT (id) DO NOTHING
            RETURNING `+conversationColumns,
			conv.ID, conv.UserID, raw, conv.ContinuationToken)
	} else {
		row = c.pool.QueryRow(ctx, `
            UPDATE conversations
            SET messages = $3, continuation_token = $4, revision = revision + 1, updated_at = now()
            WHERE id = $1 AND revision = $2
            RETURNING `+conversationColumns,
			conv.ID, expectedRevision, raw, conv.ContinuationToken)
	}
	saved, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return conversation.Conversation{}, store.ErrRevisionConflict
	}
	return saved, err
}

func (c *conversations) ListByUser(ctx context.Context, userID string, limit int) ([]conversation.Conversation, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := c.pool.Query(ctx, `
        SELECT `+conversationColumns+`
        FROM conversations
        WHERE user_id = $1
        ORDER BY updated_at DESC
        LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]conversation.Conversation, 0)
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// --- Interpretations ---

type interpretations struct{ pool *pgxpool.Pool }

func (i *interpretations) Create(ctx context.Context, a conversation.AnalysisArtifact) (conversation.AnalysisArtifact, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	urls := a.URLs
	if urls == nil {
		urls = []string{}
	}
	raw, err := json.Marshal(urls)
	if err != nil {
		return conversation.AnalysisArtifact{}, err
	}
	_, err = i.pool.Exec(ctx, `
        INSERT INTO interpretations (id, user_id, conversation_id, urls, interpretation_result, prompt_message, files_count, analysis_type, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.UserID, a.ConversationID, raw, a.InterpretationResult, a.PromptMessage, a.FilesCount, a.AnalysisType, a.CreatedAt)
	if err != nil {
		return conversation.AnalysisArtifact{}, err
	}
	return a, nil
}

func (i *interpretations) ListByConversation(ctx context.Context, conversationID string) ([]conversation.AnalysisArtifact, error) {
	rows, err := i.pool.Query(ctx, `
        SELECT id, user_id, conversation_id, urls, interpretation_result, prompt_message, files_count, analysis_type, created_at
        FROM interpretations
        WHERE conversation_id = $1
        ORDER BY created_at`, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]conversation.AnalysisArtifact, 0)
	for rows.Next() {
		var (
			a   conversation.AnalysisArtifact
			raw []byte
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.ConversationID, &raw, &a.InterpretationResult, &a.PromptMessage, &a.FilesCount, &a.AnalysisType, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &a.URLs); err != nil {
			return nil, fmt.Errorf("decode urls: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
