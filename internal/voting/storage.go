package voting

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// DB is the subset of pgxpool.Pool the store needs. It is implemented by
// *pgxpool.Pool and by pgxmock for testing.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store is the persistence boundary of the voting core. Uniqueness of
// (event id, unified user id) is the store's invariant; Upsert must be
// atomic, not find-then-write.
type Store interface {
	LoadEvent(ctx context.Context, id string) (*Event, error)
	CreateEvent(ctx context.Context, ev *Event, placeholders []VoteRecord) (string, error)
	UpdateEventPeriod(ctx context.Context, id string, start, end time.Time) error

	FindByUnifiedID(ctx context.Context, eventID, unifiedID string) (*VoteRecord, error)
	FindIndividualVoter(ctx context.Context, voterID string) (*VoteRecord, error)
	FindDuplicateByEmail(ctx context.Context, eventID, email, excludingUnifiedID string) (*VoteRecord, error)
	Upsert(ctx context.Context, eventID string, auth AuthContext, voteData []VoteItem, name string, votedAt time.Time) (*VoteRecord, error)
	ListVoters(ctx context.Context, eventID string, socialOnly bool) ([]VoteRecord, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS pgcrypto`); err != nil {
		log.Warn().Err(err).Msg("migrate: pgcrypto extension")
	}

	if _, err := db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS events(
            id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            num_voters INT NOT NULL DEFAULT 0,
            credits_per_voter INT NOT NULL DEFAULT 0,
            start_time TIMESTAMPTZ NOT NULL,
            end_time TIMESTAMPTZ NOT NULL,
            voting_mode TEXT NOT NULL DEFAULT 'individual',
            secret_hash TEXT NOT NULL DEFAULT '',
            event_data JSONB NOT NULL DEFAULT '{}',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )
    `); err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS unified_voters(
            id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
            event_id uuid NOT NULL REFERENCES events(id) ON DELETE CASCADE,
            auth_type TEXT NOT NULL,
            user_id TEXT NOT NULL,
            email TEXT,
            name TEXT,
            vote_data JSONB NOT NULL DEFAULT '[]',
            voted_at TIMESTAMPTZ,
            UNIQUE(event_id, user_id)
        )
    `); err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_unified_voters_event_email
        ON unified_voters(event_id, email)
    `); err != nil {
		log.Warn().Err(err).Msg("migrate: voters email index")
	}

	return nil
}

const eventColumns = `id, title, description, num_voters, credits_per_voter,
               start_time, end_time, voting_mode, secret_hash, event_data, created_at`

func (s *PostgresStore) LoadEvent(ctx context.Context, id string) (*Event, error) {
	var ev Event
	err := s.db.QueryRow(ctx, `
        SELECT `+eventColumns+`
        FROM events WHERE id=$1
    `, id).Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.NumVoters, &ev.CreditsPerVoter,
		&ev.StartTime, &ev.EndTime, &ev.VotingMode, &ev.SecretHash, &ev.Data, &ev.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// CreateEvent inserts the event and, for individual mode, the zeroed
// placeholder ballot per allotted voter slot, in one transaction.
func (s *PostgresStore) CreateEvent(ctx context.Context, ev *Event, placeholders []VoteRecord) (string, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx)

	var id string
	err = tx.QueryRow(ctx, `
        INSERT INTO events(title, description, num_voters, credits_per_voter,
                           start_time, end_time, voting_mode, secret_hash, event_data)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id
    `, ev.Title, ev.Description, ev.NumVoters, ev.CreditsPerVoter,
		ev.StartTime, ev.EndTime, ev.VotingMode, ev.SecretHash, ev.Data).Scan(&id)
	if err != nil {
		return "", err
	}

	for _, p := range placeholders {
		data, err := json.Marshal(p.VoteData)
		if err != nil {
			return "", err
		}
		if _, err := tx.Exec(ctx, `
            INSERT INTO unified_voters(event_id, auth_type, user_id, vote_data)
            VALUES($1,$2,$3,$4)
        `, id, p.AuthType, p.UserID, data); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (s *PostgresStore) UpdateEventPeriod(ctx context.Context, id string, start, end time.Time) error {
	res, err := s.db.Exec(ctx, `
        UPDATE events SET start_time=$1, end_time=$2 WHERE id=$3
    `, start, end, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const voterColumns = `id, event_id, auth_type, user_id, email, name, vote_data, voted_at`

func scanVoter(row pgx.Row) (*VoteRecord, error) {
	var rec VoteRecord
	var email, name *string
	var data []byte
	err := row.Scan(&rec.ID, &rec.EventID, &rec.AuthType, &rec.UserID,
		&email, &name, &data, &rec.VotedAt)
	if err != nil {
		return nil, err
	}
	if email != nil {
		rec.Email = *email
	}
	if name != nil {
		rec.Name = *name
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.VoteData); err != nil {
			return nil, err
		}
	}
	return &rec, nil
}

func (s *PostgresStore) FindByUnifiedID(ctx context.Context, eventID, unifiedID string) (*VoteRecord, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+voterColumns+`
        FROM unified_voters WHERE event_id=$1 AND user_id=$2
    `, eventID, unifiedID)
	return scanVoter(row)
}

func (s *PostgresStore) FindIndividualVoter(ctx context.Context, voterID string) (*VoteRecord, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+voterColumns+`
        FROM unified_voters WHERE user_id=$1 AND auth_type=$2
    `, voterID, AuthTypeIndividual)
	return scanVoter(row)
}

// FindDuplicateByEmail returns an existing ballot for the same event and
// email under a different unified id, or pgx.ErrNoRows. Individual contexts
// never carry an email, so this check only fires on social submissions.
func (s *PostgresStore) FindDuplicateByEmail(ctx context.Context, eventID, email, excludingUnifiedID string) (*VoteRecord, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+voterColumns+`
        FROM unified_voters
        WHERE event_id=$1 AND email=$2 AND user_id<>$3
        LIMIT 1
    `, eventID, email, excludingUnifiedID)
	return scanVoter(row)
}

// Upsert is the single concurrency control point: the unique constraint on
// (event_id, user_id) makes the insert-or-update atomic, last write wins.
func (s *PostgresStore) Upsert(ctx context.Context, eventID string, auth AuthContext, voteData []VoteItem, name string, votedAt time.Time) (*VoteRecord, error) {
	data, err := json.Marshal(voteData)
	if err != nil {
		return nil, err
	}

	var email, namePtr *string
	if auth.Email != "" {
		e := auth.Email
		email = &e
	}
	if name != "" {
		namePtr = &name
	} else if auth.Name != "" {
		n := auth.Name
		namePtr = &n
	}

	row := s.db.QueryRow(ctx, `
        INSERT INTO unified_voters(event_id, auth_type, user_id, email, name, vote_data, voted_at)
        VALUES($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (event_id, user_id)
        DO UPDATE SET vote_data = EXCLUDED.vote_data,
                      name      = COALESCE(EXCLUDED.name, unified_voters.name),
                      email     = COALESCE(EXCLUDED.email, unified_voters.email),
                      voted_at  = EXCLUDED.voted_at
        RETURNING `+voterColumns+`
    `, eventID, auth.AuthType(), auth.UnifiedID(), email, namePtr, data, votedAt)
	return scanVoter(row)
}

func (s *PostgresStore) ListVoters(ctx context.Context, eventID string, socialOnly bool) ([]VoteRecord, error) {
	query := `
        SELECT ` + voterColumns + `
        FROM unified_voters WHERE event_id=$1`
	args := []any{eventID}
	if socialOnly {
		query += ` AND auth_type<>$2`
		args = append(args, AuthTypeIndividual)
	}
	query += ` ORDER BY voted_at DESC NULLS LAST`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []VoteRecord
	for rows.Next() {
		rec, err := scanVoter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
