package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"

	"clarifier/pkg/apperrors"
	"clarifier/pkg/clarify"
	"clarifier/pkg/logx"
)

var _ clarify.Store = (*Store)(nil)

const timeLayout = time.RFC3339Nano

// Get implements clarify.SessionStore. The stored context is validated on the
// way out as well as on the way in.
func (s *Store) Get(ctx context.Context, id string) (*clarify.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT session_id, owner_id, status, context_json, version, created_at, updated_at
		FROM sessions WHERE session_id = ?
	`, id)
	return scanSession(row, id)
}

func scanSession(row *sql.Row, id string) (*clarify.Session, error) {
	var (
		session              clarify.Session
		status, contextJSON  string
		createdAt, updatedAt string
	)
	err := row.Scan(&session.ID, &session.OwnerID, &status, &contextJSON, &session.Version, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("session %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Store("failed to scan session", err)
	}

	if session.Status, err = clarify.ParseStatus(status); err != nil {
		return nil, apperrors.Store("corrupt session status", err)
	}
	if err := sonic.UnmarshalString(contextJSON, &session.Context); err != nil {
		return nil, apperrors.Store("failed to decode session context", err)
	}
	if err := session.Context.Validate(); err != nil {
		return nil, apperrors.Store("stored session context is invalid", err)
	}
	if session.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, apperrors.Store("failed to parse created_at", err)
	}
	if session.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, apperrors.Store("failed to parse updated_at", err)
	}
	return &session, nil
}

// Create implements clarify.SessionStore.
func (s *Store) Create(ctx context.Context, session *clarify.Session, entries []clarify.ConversationEntry) (err error) {
	if err := session.Context.Validate(); err != nil {
		return err
	}
	contextJSON, err := sonic.MarshalString(&session.Context)
	if err != nil {
		return apperrors.Store("failed to encode session context", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Store("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (session_id, owner_id, status, context_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, session.ID, session.OwnerID, string(session.Status), contextJSON, session.Version,
		session.CreatedAt.UTC().Format(timeLayout), session.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		return apperrors.Store(fmt.Sprintf("failed to insert session %s", session.ID), err)
	}

	if err = insertEntries(ctx, tx, entries); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Store("failed to commit transaction", err)
	}
	logx.Debug(ctx, "persistence", "created session %s with %d entries", session.ID, len(entries))
	return nil
}

// Update implements clarify.SessionStore. The row is only replaced while its
// version still equals expectedVersion.
func (s *Store) Update(ctx context.Context, session *clarify.Session, expectedVersion int64, entries []clarify.ConversationEntry) (err error) {
	if err := session.Context.Validate(); err != nil {
		return err
	}
	contextJSON, err := sonic.MarshalString(&session.Context)
	if err != nil {
		return apperrors.Store("failed to encode session context", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.Store("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	result, err := tx.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, context_json = ?, version = ?, updated_at = ?
		WHERE session_id = ? AND version = ?
	`, string(session.Status), contextJSON, session.Version,
		session.UpdatedAt.UTC().Format(timeLayout), session.ID, expectedVersion)
	if err != nil {
		return apperrors.Store(fmt.Sprintf("failed to update session %s", session.ID), err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Store("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		var exists int
		err = tx.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE session_id = ?`, session.ID).Scan(&exists)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			err = apperrors.NotFound("session %s not found", session.ID)
		case err != nil:
			err = apperrors.Store("failed to check session", err)
		default:
			err = apperrors.ConcurrentUpdate(session.ID)
		}
		return err
	}

	if err = insertEntries(ctx, tx, entries); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperrors.Store("failed to commit transaction", err)
	}
	logx.Debug(ctx, "persistence", "updated session %s to v%d (%s)", session.ID, session.Version, session.Status)
	return nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, entries []clarify.ConversationEntry) error {
	if len(entries) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO conversations (id, session_id, message_type, content, agent_id, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return apperrors.Store("failed to prepare conversation insert", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range entries {
		e := &entries[i]
		var metadata sql.NullString
		if len(e.Metadata) > 0 {
			encoded, err := sonic.MarshalString(e.Metadata)
			if err != nil {
				return apperrors.Store("failed to encode entry metadata", err)
			}
			metadata = sql.NullString{String: encoded, Valid: true}
		}
		agentID := sql.NullString{String: e.AgentID, Valid: e.AgentID != ""}

		if _, err := stmt.ExecContext(ctx, e.ID, e.SessionID, string(e.Kind), e.Content, agentID, metadata,
			e.CreatedAt.UTC().Format(timeLayout)); err != nil {
			return apperrors.Store(fmt.Sprintf("failed to insert conversation entry %s", e.ID), err)
		}
	}
	return nil
}

// Entries implements clarify.ConversationLog.
func (s *Store) Entries(ctx context.Context, sessionID string) ([]clarify.ConversationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, message_type, content, agent_id, metadata, created_at
		FROM conversations WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, apperrors.Store("failed to query conversation", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]clarify.ConversationEntry, 0)
	for rows.Next() {
		var (
			e                 clarify.ConversationEntry
			kind, createdAt   string
			agentID, metadata sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &kind, &e.Content, &agentID, &metadata, &createdAt); err != nil {
			return nil, apperrors.Store("failed to scan conversation entry", err)
		}
		e.Kind = clarify.EntryKind(kind)
		e.AgentID = agentID.String
		if metadata.Valid {
			if err := sonic.UnmarshalString(metadata.String, &e.Metadata); err != nil {
				return nil, apperrors.Store("failed to decode entry metadata", err)
			}
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, apperrors.Store("failed to parse entry created_at", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("failed to iterate conversation", err)
	}
	return entries, nil
}

// CountByStatus returns the number of sessions in each status.
func (s *Store) CountByStatus(ctx context.Context) (map[clarify.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, apperrors.Store("failed to count sessions", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[clarify.Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.Store("failed to scan session count", err)
		}
		counts[clarify.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Store("failed to iterate session counts", err)
	}
	return counts, nil
}
