package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dyike/CortexFolio/internal/apperr"
	"github.com/dyike/CortexFolio/models"
)

func (s *Store) CreateSession(ctx context.Context, session *models.ChatSession) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO chat_sessions (id, user_id, portfolio_id, stock_symbol, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`, session.ID, session.UserID, session.PortfolioID, session.StockSymbol,
			formatTime(session.CreatedAt), formatTime(session.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert chat session: %w", err)
		}
		return insertMessages(ctx, tx, session.ID, 0, session.Messages)
	})
}

// AppendMessages adds msgs after the session's last message and moves its
// updated_at to updatedAt. A missing session is apperr.ErrNotFound.
func (s *Store) AppendMessages(ctx context.Context, sessionID string, updatedAt time.Time, msgs ...models.ChatMessage) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`,
			formatTime(updatedAt), sessionID)
		if err != nil {
			return fmt.Errorf("touch chat session: %w", err)
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			return apperr.NotFound("chat session %s", sessionID)
		}

		var last int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM chat_messages WHERE session_id = ?`, sessionID).
			Scan(&last); err != nil {
			return fmt.Errorf("next message seq: %w", err)
		}
		return insertMessages(ctx, tx, sessionID, last, msgs)
	})
}

func insertMessages(ctx context.Context, tx *sql.Tx, sessionID string, after int, msgs []models.ChatMessage) error {
	for i, m := range msgs {
		_, err := tx.ExecContext(ctx, `
INSERT INTO chat_messages (session_id, seq, role, content, created_at)
VALUES (?, ?, ?, ?, ?)
`, sessionID, after+i+1, string(m.Role), m.Content, formatTime(m.Timestamp))
		if err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, userID, sessionID string) (*models.ChatSession, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, portfolio_id, stock_symbol, created_at, updated_at
FROM chat_sessions
WHERE id = ? AND user_id = ?
`, sessionID, userID)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if session.Messages, err = s.listMessages(ctx, session.ID); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns the user's sessions with transcripts, most recently
// updated first.
func (s *Store) ListSessions(ctx context.Context, userID string) ([]*models.ChatSession, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, portfolio_id, stock_symbol, created_at, updated_at
FROM chat_sessions
WHERE user_id = ?
ORDER BY updated_at DESC, id ASC
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chat sessions: %w", err)
	}
	var out []*models.ChatSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, session := range out {
		if session.Messages, err = s.listMessages(ctx, session.ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) DeleteSession(ctx context.Context, userID, sessionID string) (bool, error) {
	var deleted bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
		if err != nil {
			return fmt.Errorf("delete chat session: %w", err)
		}
		rows, _ := res.RowsAffected()
		deleted = rows > 0
		if !deleted {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("delete chat messages: %w", err)
		}
		return nil
	})
	return deleted, err
}

// DeleteSessionsIdleSince removes sessions last updated before cutoff.
func (s *Store) DeleteSessionsIdleSince(ctx context.Context, cutoff time.Time) (int, error) {
	var deleted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		c := formatTime(cutoff)
		if _, err := tx.ExecContext(ctx, `
DELETE FROM chat_messages
WHERE session_id IN (SELECT id FROM chat_sessions WHERE updated_at < ?)
`, c); err != nil {
			return fmt.Errorf("delete idle chat messages: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE updated_at < ?`, c)
		if err != nil {
			return fmt.Errorf("delete idle chat sessions: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted = int(n)
		return nil
	})
	return deleted, err
}

func scanSession(row scanner) (*models.ChatSession, error) {
	var (
		session              models.ChatSession
		createdAt, updatedAt string
	)
	if err := row.Scan(&session.ID, &session.UserID, &session.PortfolioID, &session.StockSymbol, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan chat session: %w", err)
	}
	var err error
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *Store) listMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT role, content, created_at
FROM chat_messages
WHERE session_id = ?
ORDER BY seq ASC
`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	msgs := []models.ChatMessage{}
	for rows.Next() {
		var (
			m        models.ChatMessage
			role, ts string
		)
		if err := rows.Scan(&role, &m.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Role = models.ChatRole(role)
		if m.Timestamp, err = parseTime(ts); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
