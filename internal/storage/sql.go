package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/xaenox/jobpost-bot/internal/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrations embed.FS

// Dialect selects the SQL driver and placeholder style.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SQLDraftStore keeps drafts in the job_drafts table.
type SQLDraftStore struct {
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger
}

// NewPostgresDraftStore opens a PostgreSQL connection and applies the schema.
func NewPostgresDraftStore(config DatabaseConfig, logger *zap.Logger) (*SQLDraftStore, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	return newSQLDraftStore(db, DialectPostgres, logger)
}

// NewSQLiteDraftStore opens (or creates) a SQLite database file and applies the schema.
func NewSQLiteDraftStore(path string, logger *zap.Logger) (*SQLDraftStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	return newSQLDraftStore(db, DialectSQLite, logger)
}

func newSQLDraftStore(db *sql.DB, dialect Dialect, logger *zap.Logger) (*SQLDraftStore, error) {
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	store := &SQLDraftStore{db: db, dialect: dialect, logger: logger}
	if err := store.initializeSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Draft database ready", zap.String("dialect", string(dialect)))
	return store, nil
}

func (s *SQLDraftStore) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	for _, stmt := range strings.Split(string(migrationSQL), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("error executing migrations: %w", err)
		}
	}
	return nil
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (s *SQLDraftStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLDraftStore) SaveDraft(ctx context.Context, e models.Entities) (string, error) {
	draft := models.NewDraft(uuid.New().String(), e)

	query := s.rebind(`
		INSERT INTO job_drafts (id, job_title, experience, skills, job_type, location, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		draft.ID,
		nullable(draft.JobTitle),
		nullable(draft.Experience),
		nullable(draft.Skills),
		nullable(draft.JobType),
		nullable(draft.Location),
		draft.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("error saving draft: %w", err)
	}
	return draft.ID, nil
}

func (s *SQLDraftStore) ListDrafts(ctx context.Context) ([]models.Draft, error) {
	query := `
		SELECT id, job_title, experience, skills, job_type, location, created_at
		FROM job_drafts
		ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying drafts: %w", err)
	}
	defer rows.Close()

	var drafts []models.Draft
	for rows.Next() {
		var (
			d                                            models.Draft
			title, experience, skills, jobType, location sql.NullString
		)
		if err := rows.Scan(&d.ID, &title, &experience, &skills, &jobType, &location, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning draft: %w", err)
		}
		setNullable(&d.Entities, models.AttrJobTitle, title)
		setNullable(&d.Entities, models.AttrExperience, experience)
		setNullable(&d.Entities, models.AttrSkills, skills)
		setNullable(&d.Entities, models.AttrJobType, jobType)
		setNullable(&d.Entities, models.AttrLocation, location)
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drafts: %w", err)
	}
	return drafts, nil
}

func nullable(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func setNullable(e *models.Entities, a models.Attribute, v sql.NullString) {
	if v.Valid {
		e.Set(a, v.String)
	}
}

func (s *SQLDraftStore) Close() error {
	return s.db.Close()
}
