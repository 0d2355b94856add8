package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cny-realestate-etl/internal/db"
	"github.com/sells-group/cny-realestate-etl/internal/model"
)

// PostgresStore implements Store using pgxpool. It backs deployments that
// keep the warehouse in a shared database instead of the published file.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var (
	pgUpsertAssessment = db.MustUpsertSQL(assessmentUpsert, db.Dollar)
	pgUpsertRatio      = db.MustUpsertSQL(ratioUpsert, db.Dollar)
	pgUpsertHomeValue  = db.MustUpsertSQL(homeValueUpsert, db.Dollar)
	pgInsertParcel     = db.MustUpsertSQL(parcelInsert, db.Dollar)
)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
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

// Postgres rejects a foreign key onto part of a composite key, so
// properties.municipality_code carries an index instead.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS municipality_assessment_ratios (
	municipality_code            TEXT NOT NULL,
	rate_year                    INTEGER NOT NULL,
	municipality_name            TEXT NOT NULL,
	county_name                  TEXT NOT NULL,
	residential_assessment_ratio NUMERIC(8,2) NOT NULL,
	PRIMARY KEY (municipality_code, rate_year)
);

CREATE TABLE IF NOT EXISTS properties (
	id                   TEXT PRIMARY KEY,
	swis_code            TEXT NOT NULL,
	print_key_code       TEXT NOT NULL,
	municipality_code    TEXT NOT NULL,
	municipality_name    TEXT NOT NULL,
	county_name          TEXT NOT NULL,
	school_district_code TEXT NOT NULL,
	school_district_name TEXT NOT NULL,
	address_street       TEXT NOT NULL,
	address_state        TEXT NOT NULL DEFAULT 'NY',
	address_zip          TEXT
);

CREATE TABLE IF NOT EXISTS ny_property_assessments (
	property_id                TEXT NOT NULL REFERENCES properties(id),
	roll_year                  INTEGER NOT NULL,
	property_class             INTEGER NOT NULL,
	property_class_description TEXT NOT NULL,
	property_category          TEXT NOT NULL,
	front                      DOUBLE PRECISION NOT NULL,
	depth                      DOUBLE PRECISION NOT NULL,
	full_market_value          BIGINT NOT NULL,
	assessment_land            BIGINT,
	assessment_total           BIGINT,
	PRIMARY KEY (property_id, roll_year)
);

CREATE TABLE IF NOT EXISTS zillow_home_value_index_sfh (
	municipality_name TEXT NOT NULL,
	county_name       TEXT NOT NULL,
	state             TEXT NOT NULL,
	date              TEXT NOT NULL,
	home_value_index  DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (municipality_name, county_name, state, date)
);

CREATE TABLE IF NOT EXISTS etl_loads (
	id           TEXT PRIMARY KEY,
	dataset      TEXT NOT NULL,
	county_name  TEXT NOT NULL,
	year         INTEGER NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	rows_loaded  BIGINT NOT NULL DEFAULT 0,
	rows_skipped BIGINT NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_properties_zip ON properties(address_zip);
CREATE INDEX IF NOT EXISTS idx_properties_school_district ON properties(school_district_code);
CREATE INDEX IF NOT EXISTS idx_properties_municipality ON properties(municipality_code);
CREATE INDEX IF NOT EXISTS idx_properties_county_id ON properties(county_name, id);
CREATE INDEX IF NOT EXISTS idx_properties_street_city ON properties(address_street, municipality_name);
CREATE INDEX IF NOT EXISTS idx_assessments_class ON ny_property_assessments(property_class);
CREATE INDEX IF NOT EXISTS idx_assessments_category ON ny_property_assessments(property_category);
CREATE INDEX IF NOT EXISTS idx_assessments_roll_year ON ny_property_assessments(roll_year);
CREATE INDEX IF NOT EXISTS idx_assessments_year_category ON ny_property_assessments(roll_year, property_category);
CREATE INDEX IF NOT EXISTS idx_ratios_county_year ON municipality_assessment_ratios(county_name, rate_year);
CREATE INDEX IF NOT EXISTS idx_home_values_county_date ON zillow_home_value_index_sfh(county_name, date);
CREATE INDEX IF NOT EXISTS idx_etl_loads_unit ON etl_loads(dataset, county_name, year, started_at);
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

func (s *PostgresStore) GetParcel(ctx context.Context, id string) (*model.Parcel, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+parcelColumns+` FROM properties WHERE id = $1`, id)
	p, err := scanPgParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get parcel %s", id)
	}
	return p, nil
}

func (s *PostgresStore) SaveAssessment(ctx context.Context, write ParcelWrite, parcel model.Parcel, a model.Assessment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	switch write {
	case ParcelInsert:
		if _, err := tx.Exec(ctx, pgInsertParcel, parcelArgs(parcel)...); err != nil {
			return eris.Wrapf(err, "postgres: insert parcel %s", parcel.ID)
		}
	case ParcelUpdate:
		tag, err := tx.Exec(ctx,
			`UPDATE properties
			 SET address_street = $1, address_state = $2, address_zip = COALESCE(NULLIF(address_zip, ''), $3)
			 WHERE id = $4`,
			parcel.AddressStreet, model.StateNY, zipArg(parcel), parcel.ID,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: update parcel %s", parcel.ID)
		}
		if tag.RowsAffected() == 0 {
			return eris.Errorf("parcel not found: %s", parcel.ID)
		}
	}

	if _, err := tx.Exec(ctx, pgUpsertAssessment, assessmentArgs(a)...); err != nil {
		return eris.Wrapf(err, "postgres: upsert assessment %s/%d", a.PropertyID, a.RollYear)
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit assessment")
}

func (s *PostgresStore) CountAssessments(ctx context.Context, county string, rollYear int) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM ny_property_assessments a
		 JOIN properties p ON p.id = a.property_id
		 WHERE p.county_name = $1 AND a.roll_year = $2`,
		county, rollYear,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count assessments")
}

func (s *PostgresStore) ClearAssessments(ctx context.Context, county string, rollYear int) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx,
		`DELETE FROM ny_property_assessments
		 WHERE roll_year = $1 AND property_id IN (SELECT id FROM properties WHERE county_name = $2)`,
		rollYear, county,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: clear assessments %s/%d", county, rollYear)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM etl_loads WHERE dataset = $1 AND county_name = $2 AND year = $3`,
		string(model.DatasetAssessments), county, rollYear,
	); err != nil {
		return 0, eris.Wrap(err, "postgres: clear assessment markers")
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit clear assessments")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UpsertRatio(ctx context.Context, r model.AssessmentRatio) error {
	_, err := s.pool.Exec(ctx, pgUpsertRatio, ratioArgs(r)...)
	return eris.Wrapf(err, "postgres: upsert ratio %s/%d", r.MunicipalityCode, r.RateYear)
}

func (s *PostgresStore) CountRatios(ctx context.Context, county string, rateYear int) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM municipality_assessment_ratios WHERE county_name = $1 AND rate_year = $2`,
		county, rateYear,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count ratios")
}

func (s *PostgresStore) ClearRatios(ctx context.Context, county string, rateYear int) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM municipality_assessment_ratios WHERE county_name = $1 AND rate_year = $2`,
		county, rateYear,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: clear ratios %s/%d", county, rateYear)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UpsertHomeValues(ctx context.Context, values []model.HomeValue) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, h := range values {
		if _, err := tx.Exec(ctx, pgUpsertHomeValue, homeValueArgs(h)...); err != nil {
			return 0, eris.Wrapf(err, "postgres: upsert home value %s/%s", h.MunicipalityName, h.Month)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit home values")
	}
	return int64(len(values)), nil
}

func (s *PostgresStore) CountHomeValues(ctx context.Context, county string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM zillow_home_value_index_sfh WHERE county_name = $1`, county,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count home values")
}

func (s *PostgresStore) StartLoad(ctx context.Context, dataset model.Dataset, county string, year int) (string, error) {
	id := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO etl_loads (id, dataset, county_name, year, status, started_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(dataset), county, year, string(model.LoadStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start load %s/%s/%d", dataset, county, year)
	}
	return id, nil
}

func (s *PostgresStore) CompleteLoad(ctx context.Context, id string, loaded, skipped int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE etl_loads SET status = $1, rows_loaded = $2, rows_skipped = $3, completed_at = $4 WHERE id = $5`,
		string(model.LoadStatusComplete), loaded, skipped, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete load %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("load not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FailLoad(ctx context.Context, id string, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE etl_loads SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(model.LoadStatusFailed), msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail load %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("load not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) LastLoad(ctx context.Context, dataset model.Dataset, county string, year int) (*model.LoadMarker, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+loadColumns+` FROM etl_loads
		 WHERE dataset = $1 AND county_name = $2 AND year = $3
		 ORDER BY started_at DESC LIMIT 1`,
		string(dataset), county, year,
	)
	m, err := scanPgLoad(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: last load")
	}
	return m, nil
}

func (s *PostgresStore) ListLoads(ctx context.Context) ([]model.LoadMarker, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+loadColumns+` FROM etl_loads ORDER BY started_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list loads")
	}
	defer rows.Close()

	var out []model.LoadMarker
	for rows.Next() {
		m, err := scanPgLoad(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan load")
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list loads iterate")
}

func (s *PostgresStore) ParcelsMissingZip(ctx context.Context, limit, offset int) ([]model.Parcel, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+parcelColumns+` FROM properties
		 WHERE address_zip IS NULL OR address_zip = ''
		 ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parcels missing zip")
	}
	defer rows.Close()

	var out []model.Parcel
	for rows.Next() {
		p, err := scanPgParcel(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan parcel")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: parcels missing zip iterate")
}

func (s *PostgresStore) SetZipIfUnknown(ctx context.Context, id, zip string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE properties SET address_zip = $1
		 WHERE id = $2 AND (address_zip IS NULL OR address_zip = '')`,
		zip, id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: set zip %s", id)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ParcelZips(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, address_zip FROM properties WHERE address_zip IS NOT NULL AND address_zip <> ''`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parcel zips")
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id, zip string
		if err := rows.Scan(&id, &zip); err != nil {
			return nil, eris.Wrap(err, "postgres: scan parcel zip")
		}
		out[id] = zip
	}
	return out, eris.Wrap(rows.Err(), "postgres: parcel zips iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx, `SELECT
		(SELECT COUNT(*) FROM properties),
		(SELECT COUNT(*) FROM properties WHERE address_zip IS NOT NULL AND address_zip <> ''),
		(SELECT COUNT(*) FROM ny_property_assessments),
		(SELECT COUNT(*) FROM municipality_assessment_ratios),
		(SELECT COUNT(*) FROM etl_loads WHERE status = 'complete'),
		(SELECT COUNT(*) FROM etl_loads WHERE status = 'failed')`,
	).Scan(&st.Parcels, &st.ParcelsWithZip, &st.Assessments, &st.Ratios, &st.CompletedLoads, &st.FailedLoads)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return &st, nil
}

func scanPgParcel(row pgx.Row) (*model.Parcel, error) {
	var p model.Parcel
	var zip *string
	err := row.Scan(&p.ID, &p.SwisCode, &p.PrintKeyCode, &p.MunicipalityCode, &p.MunicipalityName,
		&p.CountyName, &p.SchoolDistrictCode, &p.SchoolDistrictName,
		&p.AddressStreet, &p.AddressState, &zip)
	if err != nil {
		return nil, err
	}
	if zip != nil && *zip != "" {
		p.AddressZip = zip
	}
	return &p, nil
}

func scanPgLoad(row pgx.Row) (*model.LoadMarker, error) {
	var m model.LoadMarker
	var dataset, status string
	var errMsg *string
	err := row.Scan(&m.ID, &dataset, &m.CountyName, &m.Year, &status, &m.RowsLoaded, &m.RowsSkipped,
		&errMsg, &m.StartedAt, &m.CompletedAt)
	if err != nil {
		return nil, err
	}
	m.Dataset = model.Dataset(dataset)
	m.Status = model.LoadStatus(status)
	if errMsg != nil {
		m.Error = *errMsg
	}
	return &m, nil
}
