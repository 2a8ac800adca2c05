package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

// Pool abstracts the pgx pool operations used by the store, so tests can
// substitute pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path job operations.
var preparedStatements = map[string]string{
	"get_job":           `SELECT id, tenant_id, user_id, url, current_phase, phase_data, status, error_log, created_at, updated_at FROM onboarding_jobs WHERE id = $1`,
	"update_job_phase":  `UPDATE onboarding_jobs SET current_phase = $1, phase_data = $2, updated_at = $3 WHERE id = $4`,
	"update_job_status": `UPDATE onboarding_jobs SET status = $1, updated_at = $2 WHERE id = $3`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS onboarding_jobs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id     TEXT,
	user_id       TEXT NOT NULL,
	url           TEXT NOT NULL,
	current_phase TEXT NOT NULL DEFAULT 'DISCOVERY',
	phase_data    JSONB NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL DEFAULT 'IN_PROGRESS',
	error_log     JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tenants (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name          TEXT NOT NULL,
	sector        TEXT,
	website       TEXT,
	system_prompt TEXT,
	company_info  JSONB NOT NULL DEFAULT '{}',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS offerings (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	tenant_id        TEXT NOT NULL REFERENCES tenants(id),
	name             TEXT NOT NULL,
	type             TEXT NOT NULL,
	description      TEXT,
	price            DOUBLE PRECISION,
	currency         TEXT,
	duration_min     INTEGER,
	category         TEXT,
	image_url        TEXT,
	source_url       TEXT,
	source_page_type TEXT,
	confidence       TEXT,
	meta_info        JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON onboarding_jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_user ON onboarding_jobs(user_id);
CREATE INDEX IF NOT EXISTS idx_offerings_tenant ON offerings(tenant_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateJob(ctx context.Context, url, userID string, tenantID *string) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO onboarding_jobs (id, tenant_id, user_id, url, current_phase, phase_data, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, '{}', $6, $7, $8)`,
		id, tenantID, userID, url, string(model.PhaseDiscovery), string(model.JobStatusInProgress), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert job")
	}

	return &model.Job{
		ID:           id,
		TenantID:     tenantID,
		UserID:       userID,
		URL:          url,
		CurrentPhase: model.PhaseDiscovery,
		Status:       model.JobStatusInProgress,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	var j model.Job
	var tenantID *string
	var phaseDataJSON []byte
	var errorLogJSON *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, user_id, url, current_phase, phase_data, status, error_log, created_at, updated_at
		 FROM onboarding_jobs WHERE id = $1`,
		jobID,
	).Scan(&j.ID, &tenantID, &j.UserID, &j.URL, &j.CurrentPhase, &phaseDataJSON, &j.Status, &errorLogJSON, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}

	j.TenantID = tenantID
	if err := json.Unmarshal(phaseDataJSON, &j.PhaseData); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal phase data")
	}
	if errorLogJSON != nil {
		if err := json.Unmarshal(*errorLogJSON, &j.ErrorLog); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal error log")
		}
	}
	return &j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, tenant_id, user_id, url, current_phase, phase_data, status, error_log, created_at, updated_at
	          FROM onboarding_jobs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.UserID != "" {
		query += fmt.Sprintf(` AND user_id = $%d`, argIdx)
		args = append(args, filter.UserID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var j model.Job
		var tenantID *string
		var phaseDataJSON []byte
		var errorLogJSON *[]byte

		if err := rows.Scan(&j.ID, &tenantID, &j.UserID, &j.URL, &j.CurrentPhase, &phaseDataJSON, &j.Status, &errorLogJSON, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		j.TenantID = tenantID
		if err := json.Unmarshal(phaseDataJSON, &j.PhaseData); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal phase data")
		}
		if errorLogJSON != nil {
			if err := json.Unmarshal(*errorLogJSON, &j.ErrorLog); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal error log")
			}
		}
		jobs = append(jobs, j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) UpdateJobPhase(ctx context.Context, jobID string, phase model.Phase, data model.PhaseData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal phase data")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE onboarding_jobs SET current_phase = $1, phase_data = $2, updated_at = $3 WHERE id = $4`,
		string(phase), dataJSON, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job phase %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE onboarding_jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update job status %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) AppendJobError(ctx context.Context, jobID string, entry model.ErrorLogEntry) error {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal error entry")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE onboarding_jobs
		 SET error_log = COALESCE(error_log, '[]'::jsonb) || $1::jsonb, updated_at = $2
		 WHERE id = $3`,
		entryJSON, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: append job error %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) SetJobTenant(ctx context.Context, jobID, tenantID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE onboarding_jobs SET tenant_id = $1, updated_at = $2 WHERE id = $3`,
		tenantID, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set job tenant %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("job not found: %s", jobID)
	}
	return nil
}

func (s *PostgresStore) UpsertTenant(ctx context.Context, tenant model.Tenant) (*model.Tenant, error) {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	infoJSON, err := json.Marshal(tenant.CompanyInfo)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal company info")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, sector, website, system_prompt, company_info, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   name = $2, sector = $3, website = $4, system_prompt = $5, company_info = $6, updated_at = $8`,
		tenant.ID, tenant.Name, tenant.Sector, tenant.Website, tenant.SystemPrompt, infoJSON, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: upsert tenant")
	}
	return &tenant, nil
}

func (s *PostgresStore) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	var t model.Tenant
	var sector, website, prompt *string
	var infoJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, sector, website, system_prompt, company_info FROM tenants WHERE id = $1`,
		tenantID,
	).Scan(&t.ID, &t.Name, &sector, &website, &prompt, &infoJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("tenant not found: %s", tenantID)
		}
		return nil, eris.Wrapf(err, "postgres: get tenant %s", tenantID)
	}
	if sector != nil {
		t.Sector = *sector
	}
	if website != nil {
		t.Website = *website
	}
	if prompt != nil {
		t.SystemPrompt = *prompt
	}
	if err := json.Unmarshal(infoJSON, &t.CompanyInfo); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal company info")
	}
	return &t, nil
}

func (s *PostgresStore) SaveOfferings(ctx context.Context, tenantID string, offerings []model.Offering) ([]model.Offering, error) {
	if _, err := s.pool.Exec(ctx, `DELETE FROM offerings WHERE tenant_id = $1`, tenantID); err != nil {
		return nil, eris.Wrap(err, "postgres: clear offerings")
	}

	now := time.Now().UTC()
	saved := make([]model.Offering, 0, len(offerings))

	for _, o := range offerings {
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		o.TenantID = tenantID
		o.CreatedAt = now
		o.UpdatedAt = now

		metaJSON, err := json.Marshal(o.MetaInfo)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: marshal meta info for %s", o.Name)
		}

		_, err = s.pool.Exec(ctx,
			`INSERT INTO offerings (id, tenant_id, name, type, description, price, currency, duration_min,
			   category, image_url, source_url, source_page_type, confidence, meta_info, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			o.ID, tenantID, o.Name, string(o.Type), o.Description, o.Price, o.Currency, o.DurationMin,
			o.Category, o.ImageURL, o.SourceURL, string(o.SourcePageType), string(o.Confidence), metaJSON, now, now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: insert offering %s", o.Name)
		}
		saved = append(saved, o)
	}
	return saved, nil
}

const offeringSelectPostgres = `SELECT id, tenant_id, name, type, description, price, currency, duration_min,
	category, image_url, source_url, source_page_type, confidence, meta_info, created_at, updated_at
	FROM offerings`

func (s *PostgresStore) ListOfferings(ctx context.Context, tenantID string) ([]model.Offering, error) {
	rows, err := s.pool.Query(ctx,
		offeringSelectPostgres+` WHERE tenant_id = $1 ORDER BY created_at, name`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list offerings")
	}
	defer rows.Close()

	var out []model.Offering
	for rows.Next() {
		o, err := scanOfferingPgx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list offerings iterate")
}

func (s *PostgresStore) GetOffering(ctx context.Context, offeringID string) (*model.Offering, error) {
	row := s.pool.QueryRow(ctx, offeringSelectPostgres+` WHERE id = $1`, offeringID)
	o, err := scanOfferingPgx(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("offering not found: %s", offeringID)
		}
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) UpdateOfferingMeta(ctx context.Context, offeringID string, meta model.MetaInfo) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal meta info")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE offerings SET meta_info = $1, updated_at = $2 WHERE id = $3`,
		metaJSON, time.Now().UTC(), offeringID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update offering meta %s", offeringID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("offering not found: %s", offeringID)
	}
	return nil
}

type pgxScannable interface {
	Scan(dest ...any) error
}

func scanOfferingPgx(row pgxScannable) (*model.Offering, error) {
	var o model.Offering
	var description, currency, category, imageURL, sourceURL, sourcePageType, confidence *string
	var price *float64
	var durationMin *int
	var metaJSON []byte

	err := row.Scan(&o.ID, &o.TenantID, &o.Name, &o.Type, &description, &price, &currency, &durationMin,
		&category, &imageURL, &sourceURL, &sourcePageType, &confidence, &metaJSON, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan offering")
	}

	if description != nil {
		o.Description = *description
	}
	if currency != nil {
		o.Currency = *currency
	}
	if category != nil {
		o.Category = *category
	}
	if imageURL != nil {
		o.ImageURL = *imageURL
	}
	if sourceURL != nil {
		o.SourceURL = *sourceURL
	}
	if sourcePageType != nil {
		o.SourcePageType = model.PageType(*sourcePageType)
	}
	if confidence != nil {
		o.Confidence = model.ConfidenceLevel(*confidence)
	}
	o.Price = price
	o.DurationMin = durationMin
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &o.MetaInfo); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal meta info")
		}
	}
	return &o, nil
}
