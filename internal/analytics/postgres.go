package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Postgres is the durable recorder. Counter updates ride on upserts, so no
// in-process locking is needed beyond what database/sql provides.
type Postgres struct {
	DB *sql.DB

	now func() time.Time
}

// NewPostgres connects and pings. Schema is managed by migrations, not here.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &Postgres{DB: db, now: time.Now}, nil
}

func (p *Postgres) Close() error { return p.DB.Close() }

func (p *Postgres) RecordExchange(ctx context.Context, ex Exchange) (string, error) {
	now := p.now()
	id := ex.SessionID
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var prefsJSON, profileJSON []byte
	if ex.Preferences != nil {
		if prefsJSON, err = json.Marshal(ex.Preferences); err != nil {
			return "", fmt.Errorf("marshal preferences: %w", err)
		}
	}
	if ex.Profile != nil {
		if profileJSON, err = json.Marshal(ex.Profile); err != nil {
			return "", fmt.Errorf("marshal profile: %w", err)
		}
	}

	userInc, assistantInc := 0, 0
	if ex.UserMessage != "" {
		userInc = 1
	}
	if ex.AssistantMessage != "" {
		assistantInc = 1
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO chat_sessions (id, title, created_at, updated_at, user_messages, assistant_messages, attachments, preferences, profile)
VALUES ($1,$2,$3,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  updated_at         = EXCLUDED.updated_at,
  user_messages      = chat_sessions.user_messages + EXCLUDED.user_messages,
  assistant_messages = chat_sessions.assistant_messages + EXCLUDED.assistant_messages,
  attachments        = chat_sessions.attachments + EXCLUDED.attachments,
  preferences        = COALESCE(EXCLUDED.preferences, chat_sessions.preferences),
  profile            = COALESCE(EXCLUDED.profile, chat_sessions.profile)
`, id, deriveSessionTitle(ex.UserMessage), now, userInc, assistantInc, len(ex.Attachments), nullableJSON(prefsJSON), nullableJSON(profileJSON))
	if err != nil {
		return "", fmt.Errorf("upsert session: %w", err)
	}

	if ex.UserMessage != "" {
		_, err = tx.ExecContext(ctx, `
INSERT INTO chat_messages (session_id, role, content, ref_titles, created_at)
VALUES ($1,'user',$2,$3,$4)
`, id, truncateContent(ex.UserMessage), pq.Array([]string{}), now)
		if err != nil {
			return "", fmt.Errorf("insert user message: %w", err)
		}
		for _, tok := range extractKeywords(ex.UserMessage) {
			_, err = tx.ExecContext(ctx, `
INSERT INTO keyword_counts (key, display, count) VALUES ($1,$2,1)
ON CONFLICT (key) DO UPDATE SET
  count   = keyword_counts.count + 1,
  display = CASE WHEN length(EXCLUDED.display) > length(keyword_counts.display)
                 THEN EXCLUDED.display ELSE keyword_counts.display END
`, tok.Key, tok.Display)
			if err != nil {
				return "", fmt.Errorf("upsert keyword: %w", err)
			}
		}
	}

	if ex.AssistantMessage != "" {
		titles := referenceTitles(ex.References)
		if titles == nil {
			titles = []string{}
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO chat_messages (session_id, role, content, ref_titles, created_at)
VALUES ($1,'assistant',$2,$3,$4)
`, id, truncateContent(ex.AssistantMessage), pq.Array(titles), now)
		if err != nil {
			return "", fmt.Errorf("insert assistant message: %w", err)
		}
		for _, title := range titles {
			_, err = tx.ExecContext(ctx, `
INSERT INTO reference_counts (title, count) VALUES ($1,1)
ON CONFLICT (title) DO UPDATE SET count = reference_counts.count + 1
`, title)
			if err != nil {
				return "", fmt.Errorf("upsert reference count: %w", err)
			}
			_, err = tx.ExecContext(ctx, `
INSERT INTO session_reference_counts (session_id, title, count) VALUES ($1,$2,1)
ON CONFLICT (session_id, title) DO UPDATE SET count = session_reference_counts.count + 1
`, id, title)
			if err != nil {
				return "", fmt.Errorf("upsert session reference count: %w", err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
DELETE FROM chat_messages WHERE id NOT IN (
  SELECT id FROM chat_messages ORDER BY created_at DESC, id DESC LIMIT $1
)`, historyCap)
	if err != nil {
		return "", fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Snapshot(ctx context.Context) (*Snapshot, error) {
	now := p.now()
	snap := &Snapshot{GeneratedAt: now}

	var (
		first, last                                sql.NullTime
		userTotal, assistantTotal, attachmentTotal sql.NullInt64
	)
	err := p.DB.QueryRowContext(ctx, `
SELECT count(*),
       count(*) FILTER (WHERE updated_at >= $1),
       COALESCE(sum(user_messages), 0),
       COALESCE(sum(assistant_messages), 0),
       COALESCE(sum(attachments), 0),
       count(*) FILTER (WHERE attachments > 0),
       min(created_at),
       max(updated_at)
FROM chat_sessions
`, now.Add(-24*time.Hour)).Scan(
		&snap.Summary.TotalSessions,
		&snap.Summary.ActiveSessions24h,
		&userTotal,
		&assistantTotal,
		&attachmentTotal,
		&snap.Summary.SessionsWithAttachments,
		&first,
		&last,
	)
	if err != nil {
		return nil, fmt.Errorf("session totals: %w", err)
	}
	snap.Summary.UserMessages = int(userTotal.Int64)
	snap.Summary.AssistantMessages = int(assistantTotal.Int64)
	snap.Summary.Attachments = int(attachmentTotal.Int64)
	if first.Valid {
		snap.Summary.FirstMessageAt = &first.Time
	}
	if last.Valid {
		snap.Summary.LastMessageAt = &last.Time
	}
	if snap.Summary.TotalSessions > 0 {
		total := snap.Summary.UserMessages + snap.Summary.AssistantMessages
		snap.Summary.AvgMessagesPerSession = roundTo1(float64(total) / float64(snap.Summary.TotalSessions))
	}

	err = p.DB.QueryRowContext(ctx, `
SELECT count(DISTINCT (profile->>'name') || '|' || COALESCE(profile->>'grade', ''))
FROM chat_sessions
WHERE COALESCE(profile->>'name', '') <> ''
`).Scan(&snap.Summary.UniqueLearners)
	if err != nil {
		return nil, fmt.Errorf("unique learners: %w", err)
	}

	timestamps, err := p.userMessageTimes(ctx)
	if err != nil {
		return nil, err
	}
	snap.Usage = usageFrom(timestamps, now)

	if snap.TopGuides, err = p.countRows(ctx, `
SELECT title, count FROM reference_counts ORDER BY count DESC, title ASC LIMIT $1`, topGuideCount); err != nil {
		return nil, fmt.Errorf("top guides: %w", err)
	}
	if snap.TopKeywords, err = p.countRows(ctx, `
SELECT display, count FROM keyword_counts ORDER BY count DESC, key ASC LIMIT $1`, topKeywordCount); err != nil {
		return nil, fmt.Errorf("top keywords: %w", err)
	}

	if snap.Audience, err = p.audience(ctx); err != nil {
		return nil, err
	}
	if snap.Sessions, err = p.recentSessions(ctx); err != nil {
		return nil, err
	}
	if snap.Messages, err = p.recentMessages(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (p *Postgres) userMessageTimes(ctx context.Context) ([]time.Time, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT created_at FROM chat_messages WHERE role = 'user'`)
	if err != nil {
		return nil, fmt.Errorf("user message times: %w", err)
	}
	defer rows.Close()
	var out []time.Time
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

func (p *Postgres) countRows(ctx context.Context, query string, args ...any) ([]CountEntry, error) {
	rows, err := p.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CountEntry
	for rows.Next() {
		var e CountEntry
		if err := rows.Scan(&e.Name, &e.Count); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) audience(ctx context.Context) (AudienceStats, error) {
	rows, err := p.DB.QueryContext(ctx, `SELECT preferences, profile FROM chat_sessions`)
	if err != nil {
		return AudienceStats{}, fmt.Errorf("audience: %w", err)
	}
	defer rows.Close()
	var sessions []*session
	for rows.Next() {
		var prefsJSON, profileJSON []byte
		if err := rows.Scan(&prefsJSON, &profileJSON); err != nil {
			return AudienceStats{}, err
		}
		s := &session{}
		if len(prefsJSON) > 0 {
			var prefs Preferences
			if err := json.Unmarshal(prefsJSON, &prefs); err == nil {
				s.Preferences = &prefs
			}
		}
		if len(profileJSON) > 0 {
			var profile Profile
			if err := json.Unmarshal(profileJSON, &profile); err == nil {
				s.Profile = &profile
			}
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return AudienceStats{}, err
	}
	return audienceFrom(sessions), nil
}

func (p *Postgres) recentSessions(ctx context.Context) ([]SessionOverview, error) {
	rows, err := p.DB.QueryContext(ctx, `
SELECT id, title, created_at, updated_at, user_messages, assistant_messages, attachments
FROM chat_sessions ORDER BY updated_at DESC LIMIT $1`, recentSessionCount)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()
	var out []SessionOverview
	for rows.Next() {
		var s SessionOverview
		if err := rows.Scan(&s.ID, &s.Title, &s.CreatedAt, &s.UpdatedAt, &s.UserMessages, &s.AssistantMessages, &s.Attachments); err != nil {
			return nil, err
		}
		s.TotalMessages = s.UserMessages + s.AssistantMessages
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		refs, err := p.countRows(ctx, `
SELECT title, count FROM session_reference_counts WHERE session_id = $1
ORDER BY count DESC, title ASC LIMIT $2`, out[i].ID, sessionTopRefCount)
		if err != nil {
			return nil, fmt.Errorf("session references: %w", err)
		}
		out[i].TopReferences = refs
	}
	return out, nil
}

func (p *Postgres) recentMessages(ctx context.Context) ([]Message, error) {
	rows, err := p.DB.QueryContext(ctx, `
SELECT session_id, role, content, ref_titles, created_at
FROM chat_messages ORDER BY created_at DESC, id DESC LIMIT $1`, recentMessageCount)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		var refs pq.StringArray
		if err := rows.Scan(&m.SessionID, &m.Role, &m.Content, &refs, &m.Timestamp); err != nil {
			return nil, err
		}
		if len(refs) > 0 {
			m.References = refs
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
