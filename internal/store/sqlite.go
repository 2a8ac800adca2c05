package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/rehberim360/yapay-zeka-chatbot-sub000/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS onboarding_jobs (
	id            TEXT PRIMARY KEY,
	tenant_id     TEXT,
	user_id       TEXT NOT NULL,
	url           TEXT NOT NULL,
	current_phase TEXT NOT NULL DEFAULT 'DISCOVERY',
	phase_data    TEXT NOT NULL DEFAULT '{}',
	status        TEXT NOT NULL DEFAULT 'IN_PROGRESS',
	error_log     TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS tenants (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	sector        TEXT,
	website       TEXT,
	system_prompt TEXT,
	company_info  TEXT NOT NULL DEFAULT '{}',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS offerings (
	id               TEXT PRIMARY KEY,
	tenant_id        TEXT NOT NULL REFERENCES tenants(id),
	name             TEXT NOT NULL,
	type             TEXT NOT NULL,
	description      TEXT,
	price            REAL,
	currency         TEXT,
	duration_min     INTEGER,
	category         TEXT,
	image_url        TEXT,
	source_url       TEXT,
	source_page_type TEXT,
	confidence       TEXT,
	meta_info        TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON onboarding_jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_user ON onboarding_jobs(user_id);
CREATE INDEX IF NOT EXISTS idx_offerings_tenant ON offerings(tenant_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateJob(ctx context.Context, url, userID string, tenantID *string) (*model.Job, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO onboarding_jobs (id, tenant_id, user_id, url, current_phase, phase_data, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, '{}', ?, ?, ?)`,
		id, tenantID, userID, url, string(model.PhaseDiscovery), string(model.JobStatusInProgress), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert job")
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

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, user_id, url, current_phase, phase_data, status, error_log, created_at, updated_at
		 FROM onboarding_jobs WHERE id = ?`,
		jobID,
	)
	return scanJob(row)
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.Job, error) {
	query := `SELECT id, tenant_id, user_id, url, current_phase, phase_data, status, error_log, created_at, updated_at
	          FROM onboarding_jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) UpdateJobPhase(ctx context.Context, jobID string, phase model.Phase, data model.PhaseData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal phase data")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE onboarding_jobs SET current_phase = ?, phase_data = ?, updated_at = ? WHERE id = ?`,
		string(phase), string(dataJSON), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job phase %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) UpdateJobStatus(ctx context.Context, jobID string, status model.JobStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE onboarding_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job status %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) AppendJobError(ctx context.Context, jobID string, entry model.ErrorLogEntry) error {
	job, err := s.GetJob(ctx, jobID)
	if err != nil {
		return err
	}

	logJSON, err := json.Marshal(append(job.ErrorLog, entry))
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal error log")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE onboarding_jobs SET error_log = ?, updated_at = ? WHERE id = ?`,
		string(logJSON), time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: append job error %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) SetJobTenant(ctx context.Context, jobID, tenantID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE onboarding_jobs SET tenant_id = ?, updated_at = ? WHERE id = ?`,
		tenantID, time.Now().UTC(), jobID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set job tenant %s", jobID)
	}
	return checkRowsAffected(res, "job", jobID)
}

func (s *SQLiteStore) UpsertTenant(ctx context.Context, tenant model.Tenant) (*model.Tenant, error) {
	if tenant.ID == "" {
		tenant.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	infoJSON, err := json.Marshal(tenant.CompanyInfo)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal company info")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, sector, website, system_prompt, company_info, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, sector = excluded.sector, website = excluded.website,
		   system_prompt = excluded.system_prompt, company_info = excluded.company_info,
		   updated_at = excluded.updated_at`,
		tenant.ID, tenant.Name, tenant.Sector, tenant.Website, tenant.SystemPrompt, string(infoJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert tenant")
	}
	return &tenant, nil
}

func (s *SQLiteStore) GetTenant(ctx context.Context, tenantID string) (*model.Tenant, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, sector, website, system_prompt, company_info FROM tenants WHERE id = ?`,
		tenantID,
	)

	var t model.Tenant
	var sector, website, prompt sql.NullString
	var infoJSON string
	err := row.Scan(&t.ID, &t.Name, &sector, &website, &prompt, &infoJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("tenant not found: %s", tenantID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan tenant")
	}
	t.Sector = sector.String
	t.Website = website.String
	t.SystemPrompt = prompt.String
	if err := json.Unmarshal([]byte(infoJSON), &t.CompanyInfo); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal company info")
	}
	return &t, nil
}

func (s *SQLiteStore) SaveOfferings(ctx context.Context, tenantID string, offerings []model.Offering) ([]model.Offering, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM offerings WHERE tenant_id = ?`, tenantID); err != nil {
		return nil, eris.Wrap(err, "sqlite: clear offerings")
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
			return nil, eris.Wrapf(err, "sqlite: marshal meta info for %s", o.Name)
		}

		_, err = s.db.ExecContext(ctx,
			`INSERT INTO offerings (id, tenant_id, name, type, description, price, currency, duration_min,
			   category, image_url, source_url, source_page_type, confidence, meta_info, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o.ID, tenantID, o.Name, string(o.Type), o.Description, o.Price, o.Currency, o.DurationMin,
			o.Category, o.ImageURL, o.SourceURL, string(o.SourcePageType), string(o.Confidence), string(metaJSON), now, now,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert offering %s", o.Name)
		}
		saved = append(saved, o)
	}
	return saved, nil
}

func (s *SQLiteStore) ListOfferings(ctx context.Context, tenantID string) ([]model.Offering, error) {
	rows, err := s.db.QueryContext(ctx,
		offeringSelectSQLite+` WHERE tenant_id = ? ORDER BY created_at, name`,
		tenantID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list offerings")
	}
	defer rows.Close()

	var out []model.Offering
	for rows.Next() {
		o, err := scanOffering(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list offerings iterate")
}

func (s *SQLiteStore) GetOffering(ctx context.Context, offeringID string) (*model.Offering, error) {
	row := s.db.QueryRowContext(ctx, offeringSelectSQLite+` WHERE id = ?`, offeringID)
	return scanOffering(row)
}

func (s *SQLiteStore) UpdateOfferingMeta(ctx context.Context, offeringID string, meta model.MetaInfo) error {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal meta info")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE offerings SET meta_info = ?, updated_at = ? WHERE id = ?`,
		string(metaJSON), time.Now().UTC(), offeringID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update offering meta %s", offeringID)
	}
	return checkRowsAffected(res, "offering", offeringID)
}

const offeringSelectSQLite = `SELECT id, tenant_id, name, type, description, price, currency, duration_min,
	category, image_url, source_url, source_page_type, confidence, meta_info, created_at, updated_at
	FROM offerings`

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var tenantID sql.NullString
	var phaseDataJSON string
	var errorLogJSON sql.NullString

	err := row.Scan(&j.ID, &tenantID, &j.UserID, &j.URL, &j.CurrentPhase, &phaseDataJSON, &j.Status, &errorLogJSON, &j.CreatedAt, &j.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("job not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan job")
	}

	if tenantID.Valid {
		j.TenantID = &tenantID.String
	}
	if err := json.Unmarshal([]byte(phaseDataJSON), &j.PhaseData); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal phase data")
	}
	if errorLogJSON.Valid && errorLogJSON.String != "" {
		if err := json.Unmarshal([]byte(errorLogJSON.String), &j.ErrorLog); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal error log")
		}
	}
	return &j, nil
}

func scanOffering(row scannable) (*model.Offering, error) {
	var o model.Offering
	var description, currency, category, imageURL, sourceURL, sourcePageType, confidence sql.NullString
	var price sql.NullFloat64
	var durationMin sql.NullInt64
	var metaJSON sql.NullString

	err := row.Scan(&o.ID, &o.TenantID, &o.Name, &o.Type, &description, &price, &currency, &durationMin,
		&category, &imageURL, &sourceURL, &sourcePageType, &confidence, &metaJSON, &o.CreatedAt, &o.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("offering not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan offering")
	}

	o.Description = description.String
	o.Currency = currency.String
	o.Category = category.String
	o.ImageURL = imageURL.String
	o.SourceURL = sourceURL.String
	o.SourcePageType = model.PageType(sourcePageType.String)
	o.Confidence = model.ConfidenceLevel(confidence.String)
	if price.Valid {
		o.Price = &price.Float64
	}
	if durationMin.Valid {
		d := int(durationMin.Int64)
		o.DurationMin = &d
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &o.MetaInfo); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal meta info")
		}
	}
	return &o, nil
}
