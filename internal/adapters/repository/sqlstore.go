package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/okian/fires/internal/domain/circle"
	"github.com/okian/fires/internal/domain/model"
	"github.com/okian/fires/internal/domain/zones"
	"github.com/okian/fires/pkg/logger"
)

// SQLStore is a Store over database/sql. SQLite (modernc) and Postgres
// (lib/pq) share one portable schema; queries are written with ? and
// rebound to $n for Postgres.
type SQLStore struct {
	db             *sql.DB
	driver         string
	logger         logger.Logger
	skipMigrations bool
}

// Open connects to dsn with driver, applies pragmas for SQLite and runs
// migrations.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}
	db, err := openDB(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("repository: open database: %w", err)
	}
	s, err := NewSQLStore(ctx, db, driver, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an existing connection pool.
func NewSQLStore(ctx context.Context, db *sql.DB, driver string, opts ...Option) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
		for _, p := range sqlitePragmas {
			if _, err := db.ExecContext(ctx, p); err != nil {
				return nil, fmt.Errorf("repository: pragma %q: %w", p, err)
			}
		}
	}
	if !s.skipMigrations {
		if err := s.migrate(ctx); err != nil {
			return nil, fmt.Errorf("repository: migration: %w", err)
		}
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	s.logger.Debug(ctx, "schema migrated", logger.String("driver", s.driver))
	return nil
}

// q rebinds ? placeholders for the active driver.
func (s *SQLStore) q(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toMicros(t time.Time) int64 { return t.UnixMicro() }

func fromMicros(v int64) time.Time { return time.UnixMicro(v).UTC() }

func nullMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMicro(), Valid: true}
}

func fromNullMicros(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMicros(v.Int64)
	return &t
}

// Alignment

func (s *SQLStore) Ratings(ctx context.Context, user string) (model.Ratings, error) {
	var r model.Ratings
	err := s.db.QueryRowContext(ctx, s.q(
		`SELECT feelings, influence, resilience, ethics, strengths FROM alignment_ratings WHERE user_id = ?`), user).
		Scan(&r[0], &r[1], &r[2], &r[3], &r[4])
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, fmt.Errorf("query ratings: %w", err)
	}
	return r, nil
}

func (s *SQLStore) SaveRatings(ctx context.Context, sub model.AlignmentSubmission) error {
	r := sub.Ratings
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO alignment_ratings (user_id, submission_id, feelings, influence, resilience, ethics, strengths, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			submission_id = excluded.submission_id,
			feelings = excluded.feelings,
			influence = excluded.influence,
			resilience = excluded.resilience,
			ethics = excluded.ethics,
			strengths = excluded.strengths,
			submitted_at = excluded.submitted_at
		WHERE excluded.submitted_at >= alignment_ratings.submitted_at`),
		sub.UserID, sub.SubmissionID, r[0], r[1], r[2], r[3], r[4], toMicros(sub.SubmittedAt))
	if err != nil {
		return fmt.Errorf("save ratings: %w", err)
	}
	return nil
}

// Snapshots

func (s *SQLStore) LatestSnapshot(ctx context.Context, user string) (*model.Snapshot, error) {
	snap := model.Snapshot{UserID: user}
	var recorded int64
	r := &snap.Ratings
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT feelings, influence, resilience, ethics, strengths, score, connections, recorded_at
		FROM zone_snapshots WHERE user_id = ?`), user).
		Scan(&r[0], &r[1], &r[2], &r[3], &r[4], &snap.Score, &snap.Connections, &recorded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	snap.RecordedAt = fromMicros(recorded)
	snap.Breakdown = zones.ClassifyBreakdown(snap.Ratings)
	snap.GrowthEdge = zones.GrowthEdge(snap.Breakdown)
	snap.Strength = zones.Strength(snap.Breakdown)
	return &snap, nil
}

func (s *SQLStore) SaveSnapshot(ctx context.Context, snap model.Snapshot) error {
	r := snap.Ratings
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO zone_snapshots (user_id, feelings, influence, resilience, ethics, strengths, score, connections, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			feelings = excluded.feelings,
			influence = excluded.influence,
			resilience = excluded.resilience,
			ethics = excluded.ethics,
			strengths = excluded.strengths,
			score = excluded.score,
			connections = excluded.connections,
			recorded_at = excluded.recorded_at
		WHERE excluded.recorded_at >= zone_snapshots.recorded_at`),
		snap.UserID, r[0], r[1], r[2], r[3], r[4], snap.Score, snap.Connections, toMicros(snap.RecordedAt))
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) ConnectionCount(ctx context.Context, user string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT COUNT(DISTINCT CASE WHEN from_user = ? THEN to_user ELSE from_user END)
		FROM visibility_edges
		WHERE (from_user = ? OR to_user = ?) AND from_user <> to_user AND muted_at IS NULL`),
		user, user, user).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count connections: %w", err)
	}
	return n, nil
}

// Markers

const markerColumns = `id, owner_id, engagement_id, connection_id, label, direction, baseline, target, current_score, active, created_at`

func (s *SQLStore) Markers(ctx context.Context, f MarkerFilter) ([]model.Marker, error) {
	query := `SELECT ` + markerColumns + ` FROM markers WHERE 1 = 1`
	var args []any
	if f.OwnerID != "" {
		query += ` AND owner_id = ?`
		args = append(args, f.OwnerID)
	}
	if f.EngagementID != "" {
		query += ` AND engagement_id = ?`
		args = append(args, f.EngagementID)
	}
	if f.ActiveOnly {
		query += ` AND active = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	out := []model.Marker{}
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate markers: %w", err)
	}
	_ = rows.Close()

	for i := range out {
		if out[i].Updates, err = s.markerUpdates(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *SQLStore) Marker(ctx context.Context, id string) (model.Marker, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+markerColumns+` FROM markers WHERE id = ?`), id)
	m, err := scanMarker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Marker{}, ErrNotFound
	}
	if err != nil {
		return model.Marker{}, err
	}
	if m.Updates, err = s.markerUpdates(ctx, id); err != nil {
		return model.Marker{}, err
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMarker(sc scanner) (model.Marker, error) {
	var (
		m       model.Marker
		dir     string
		created int64
	)
	err := sc.Scan(&m.ID, &m.OwnerID, &m.EngagementID, &m.ConnectionID, &m.Label, &dir,
		&m.Baseline, &m.Target, &m.Current, &m.Active, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return m, err
	}
	if err != nil {
		return m, fmt.Errorf("scan marker: %w", err)
	}
	m.Direction = model.Direction(dir)
	m.CreatedAt = fromMicros(created)
	return m, nil
}

func (s *SQLStore) markerUpdates(ctx context.Context, markerID string) ([]model.MarkerUpdate, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, marker_id, score, source, note, recorded_at
		FROM marker_updates WHERE marker_id = ? ORDER BY seq`), markerID)
	if err != nil {
		return nil, fmt.Errorf("query marker updates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.MarkerUpdate
	for rows.Next() {
		var (
			u        model.MarkerUpdate
			source   string
			recorded int64
		)
		if err := rows.Scan(&u.ID, &u.MarkerID, &u.Score, &source, &u.Note, &recorded); err != nil {
			return nil, fmt.Errorf("scan marker update: %w", err)
		}
		u.Source = model.UpdateSource(source)
		u.RecordedAt = fromMicros(recorded)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marker updates: %w", err)
	}
	return out, nil
}

const insertUpdateSQL = `
	INSERT INTO marker_updates (id, marker_id, seq, score, source, note, recorded_at)
	VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM marker_updates WHERE marker_id = ?), ?, ?, ?, ?)`

// CreateMarker writes the marker row and every update it carries in one
// transaction; a failure on any row leaves neither behind.
func (s *SQLStore) CreateMarker(ctx context.Context, m model.Marker) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, s.q(`INSERT INTO markers (`+markerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`),
		m.ID, m.OwnerID, m.EngagementID, m.ConnectionID, m.Label, string(m.Direction),
		m.Baseline, m.Target, m.Current, m.Active, toMicros(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert marker: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: marker %s", ErrConflict, m.ID)
	}
	for _, u := range m.Updates {
		_, err = tx.ExecContext(ctx, s.q(insertUpdateSQL),
			u.ID, m.ID, m.ID, u.Score, string(u.Source), u.Note, toMicros(u.RecordedAt))
		if err != nil {
			return fmt.Errorf("insert initial marker update: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// AppendMarkerUpdate moves the current score and appends u in one transaction.
func (s *SQLStore) AppendMarkerUpdate(ctx context.Context, markerID string, u model.MarkerUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, s.q(`UPDATE markers SET current_score = ? WHERE id = ? AND active = ?`),
		u.Score, markerID, true)
	if err != nil {
		return fmt.Errorf("update marker: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	_, err = tx.ExecContext(ctx, s.q(insertUpdateSQL),
		u.ID, markerID, markerID, u.Score, string(u.Source), u.Note, toMicros(u.RecordedAt))
	if err != nil {
		return fmt.Errorf("insert marker update: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLStore) SetMarkerActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE markers SET active = ? WHERE id = ?`), active, id)
	if err != nil {
		return fmt.Errorf("set marker active: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Engagements

const engagementColumns = `id, client_id, coach_id, week, status, start_date, end_date`

func scanEngagement(sc scanner) (model.Engagement, error) {
	var (
		e      model.Engagement
		status string
		start  int64
		end    sql.NullInt64
	)
	if err := sc.Scan(&e.ID, &e.ClientID, &e.CoachID, &e.Week, &status, &start, &end); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, ErrNotFound
		}
		return e, fmt.Errorf("scan engagement: %w", err)
	}
	e.Status = model.Status(status)
	e.StartDate = fromMicros(start)
	e.EndDate = fromNullMicros(end)
	return e, nil
}

func (s *SQLStore) Engagement(ctx context.Context, id string) (model.Engagement, error) {
	return scanEngagement(s.db.QueryRowContext(ctx, s.q(`SELECT `+engagementColumns+` FROM engagements WHERE id = ?`), id))
}

func (s *SQLStore) EngagementForClient(ctx context.Context, clientID string) (model.Engagement, error) {
	return scanEngagement(s.db.QueryRowContext(ctx, s.q(`
		SELECT `+engagementColumns+` FROM engagements
		WHERE client_id = ? ORDER BY start_date DESC, id DESC LIMIT 1`), clientID))
}

func (s *SQLStore) SaveEngagement(ctx context.Context, e model.Engagement) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO engagements (`+engagementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			week = excluded.week,
			status = excluded.status,
			end_date = excluded.end_date`),
		e.ID, e.ClientID, e.CoachID, e.Week, string(e.Status), toMicros(e.StartDate), nullMicros(e.EndDate))
	if err != nil {
		return fmt.Errorf("save engagement: %w", err)
	}
	return nil
}

// Edges

func (s *SQLStore) Edges(ctx context.Context, user string, dir circle.Direction) ([]model.VisibilityEdge, error) {
	col := "from_user"
	if dir == circle.Incoming {
		col = "to_user"
	}
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT from_user, to_user, muted_at, created_at FROM visibility_edges
		WHERE `+col+` = ? ORDER BY from_user, to_user`), user)
	if err != nil {
		return nil, fmt.Errorf("query %s edges: %w", dir, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.VisibilityEdge
	for rows.Next() {
		var (
			e       model.VisibilityEdge
			muted   sql.NullInt64
			created int64
		)
		if err := rows.Scan(&e.FromUser, &e.ToUser, &muted, &created); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.MutedAt = fromNullMicros(muted)
		e.CreatedAt = fromMicros(created)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edges: %w", err)
	}
	return out, nil
}

func (s *SQLStore) PutEdge(ctx context.Context, e model.VisibilityEdge) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO visibility_edges (from_user, to_user, muted_at, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (from_user, to_user) DO UPDATE SET muted_at = excluded.muted_at`),
		e.FromUser, e.ToUser, nullMicros(e.MutedAt), toMicros(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("put edge: %w", err)
	}
	return nil
}

// Content

func (s *SQLStore) ShareableContent(ctx context.Context, kind model.ContentKind, authors []string) ([]model.ShareableContent, error) {
	if len(authors) == 0 {
		return nil, nil
	}
	query := `SELECT id, kind, author_id, recipient_id, body, dimensions, shareable, created_at
		FROM shareable_content WHERE kind = ? AND author_id IN (` + placeholders(len(authors)) + `)`
	args := make([]any, 0, len(authors)+2)
	args = append(args, string(kind))
	for _, a := range authors {
		args = append(args, a)
	}
	if !kind.AlwaysVisible() {
		query += ` AND shareable = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query %s content: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ShareableContent
	for rows.Next() {
		var (
			c       model.ShareableContent
			k, dims string
			created int64
		)
		if err := rows.Scan(&c.ID, &k, &c.AuthorID, &c.RecipientID, &c.Body, &dims, &c.Shareable, &created); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		c.Kind = model.ContentKind(k)
		c.Dimensions = splitDimensions(dims)
		c.CreatedAt = fromMicros(created)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content: %w", err)
	}
	return out, nil
}

func (s *SQLStore) PutContent(ctx context.Context, c model.ShareableContent) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO shareable_content (id, kind, author_id, recipient_id, body, dimensions, shareable, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			body = excluded.body,
			dimensions = excluded.dimensions,
			shareable = excluded.shareable`),
		c.ID, string(c.Kind), c.AuthorID, c.RecipientID, c.Body, joinDimensions(c.Dimensions), c.Shareable, toMicros(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("put content: %w", err)
	}
	return nil
}

func joinDimensions(dims []model.Dimension) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

func splitDimensions(s string) []model.Dimension {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]model.Dimension, 0, len(parts))
	for _, p := range parts {
		if d := model.Dimension(p); d.Valid() {
			out = append(out, d)
		}
	}
	return out
}
