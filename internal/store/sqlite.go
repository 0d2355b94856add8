package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cny-realestate-etl/internal/db"
	"github.com/sells-group/cny-realestate-etl/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB

	upsertAssessment string
	upsertRatio      string
	upsertHomeValue  string
	insertParcel     string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Single writer.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{
		db:               conn,
		upsertAssessment: db.MustUpsertSQL(assessmentUpsert, db.Question),
		upsertRatio:      db.MustUpsertSQL(ratioUpsert, db.Question),
		upsertHomeValue:  db.MustUpsertSQL(homeValueUpsert, db.Question),
		insertParcel:     db.MustUpsertSQL(parcelInsert, db.Question),
	}, nil
}

// The municipality_code reference is declarative: ratios are keyed by
// (municipality_code, rate_year) and may load after the parcels that use
// them, so foreign key enforcement stays off.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS municipality_assessment_ratios (
	municipality_code            TEXT NOT NULL,
	rate_year                    INTEGER NOT NULL,
	municipality_name            TEXT NOT NULL,
	county_name                  TEXT NOT NULL,
	residential_assessment_ratio REAL NOT NULL,
	PRIMARY KEY (municipality_code, rate_year)
);

CREATE TABLE IF NOT EXISTS properties (
	id                   TEXT PRIMARY KEY,
	swis_code            TEXT NOT NULL,
	print_key_code       TEXT NOT NULL,
	municipality_code    TEXT NOT NULL REFERENCES municipality_assessment_ratios(municipality_code),
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
	front                      REAL NOT NULL,
	depth                      REAL NOT NULL,
	full_market_value          INTEGER NOT NULL,
	assessment_land            INTEGER,
	assessment_total           INTEGER,
	PRIMARY KEY (property_id, roll_year)
);

CREATE TABLE IF NOT EXISTS zillow_home_value_index_sfh (
	municipality_name TEXT NOT NULL,
	county_name       TEXT NOT NULL,
	state             TEXT NOT NULL,
	date              TEXT NOT NULL,
	home_value_index  REAL NOT NULL,
	PRIMARY KEY (municipality_name, county_name, state, date)
);

CREATE TABLE IF NOT EXISTS etl_loads (
	id           TEXT PRIMARY KEY,
	dataset      TEXT NOT NULL,
	county_name  TEXT NOT NULL,
	year         INTEGER NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	rows_loaded  INTEGER NOT NULL DEFAULT 0,
	rows_skipped INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetParcel(ctx context.Context, id string) (*model.Parcel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+parcelColumns+` FROM properties WHERE id = ?`, id)
	p, err := scanParcel(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get parcel %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) SaveAssessment(ctx context.Context, write ParcelWrite, parcel model.Parcel, a model.Assessment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	switch write {
	case ParcelInsert:
		if _, err := tx.ExecContext(ctx, s.insertParcel, parcelArgs(parcel)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert parcel %s", parcel.ID)
		}
	case ParcelUpdate:
		res, err := tx.ExecContext(ctx,
			`UPDATE properties
			 SET address_street = ?, address_state = ?, address_zip = COALESCE(NULLIF(address_zip, ''), ?)
			 WHERE id = ?`,
			parcel.AddressStreet, model.StateNY, zipArg(parcel), parcel.ID,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: update parcel %s", parcel.ID)
		}
		if err := checkRowsAffected(res, "parcel", parcel.ID); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, s.upsertAssessment, assessmentArgs(a)...); err != nil {
		return eris.Wrapf(err, "sqlite: upsert assessment %s/%d", a.PropertyID, a.RollYear)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit assessment")
}

func (s *SQLiteStore) CountAssessments(ctx context.Context, county string, rollYear int) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ny_property_assessments a
		 JOIN properties p ON p.id = a.property_id
		 WHERE p.county_name = ? AND a.roll_year = ?`,
		county, rollYear,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count assessments")
}

func (s *SQLiteStore) ClearAssessments(ctx context.Context, county string, rollYear int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx,
		`DELETE FROM ny_property_assessments
		 WHERE roll_year = ? AND property_id IN (SELECT id FROM properties WHERE county_name = ?)`,
		rollYear, county,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear assessments %s/%d", county, rollYear)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM etl_loads WHERE dataset = ? AND county_name = ? AND year = ?`,
		string(model.DatasetAssessments), county, rollYear,
	); err != nil {
		return 0, eris.Wrap(err, "sqlite: clear assessment markers")
	}
	return n, eris.Wrap(tx.Commit(), "sqlite: commit clear assessments")
}

func (s *SQLiteStore) UpsertRatio(ctx context.Context, r model.AssessmentRatio) error {
	_, err := s.db.ExecContext(ctx, s.upsertRatio, ratioArgs(r)...)
	return eris.Wrapf(err, "sqlite: upsert ratio %s/%d", r.MunicipalityCode, r.RateYear)
}

func (s *SQLiteStore) CountRatios(ctx context.Context, county string, rateYear int) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM municipality_assessment_ratios WHERE county_name = ? AND rate_year = ?`,
		county, rateYear,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count ratios")
}

func (s *SQLiteStore) ClearRatios(ctx context.Context, county string, rateYear int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM municipality_assessment_ratios WHERE county_name = ? AND rate_year = ?`,
		county, rateYear,
	)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear ratios %s/%d", county, rateYear)
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: rows affected")
}

// UpsertHomeValues writes values in one transaction and returns the count.
func (s *SQLiteStore) UpsertHomeValues(ctx context.Context, values []model.HomeValue) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, s.upsertHomeValue)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare home value upsert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, h := range values {
		if _, err := stmt.ExecContext(ctx, homeValueArgs(h)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert home value %s/%s", h.MunicipalityName, h.Month)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit home values")
	}
	return int64(len(values)), nil
}

func (s *SQLiteStore) CountHomeValues(ctx context.Context, county string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM zillow_home_value_index_sfh WHERE county_name = ?`, county,
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count home values")
}

func (s *SQLiteStore) StartLoad(ctx context.Context, dataset model.Dataset, county string, year int) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO etl_loads (id, dataset, county_name, year, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(dataset), county, year, string(model.LoadStatusRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: start load %s/%s/%d", dataset, county, year)
	}
	return id, nil
}

func (s *SQLiteStore) CompleteLoad(ctx context.Context, id string, loaded, skipped int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE etl_loads SET status = ?, rows_loaded = ?, rows_skipped = ?, completed_at = ? WHERE id = ?`,
		string(model.LoadStatusComplete), loaded, skipped, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete load %s", id)
	}
	return checkRowsAffected(res, "load", id)
}

func (s *SQLiteStore) FailLoad(ctx context.Context, id string, msg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE etl_loads SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.LoadStatusFailed), msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail load %s", id)
	}
	return checkRowsAffected(res, "load", id)
}

func (s *SQLiteStore) LastLoad(ctx context.Context, dataset model.Dataset, county string, year int) (*model.LoadMarker, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+loadColumns+` FROM etl_loads
		 WHERE dataset = ? AND county_name = ? AND year = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		string(dataset), county, year,
	)
	m, err := scanLoad(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: last load")
	}
	return m, nil
}

func (s *SQLiteStore) ListLoads(ctx context.Context) ([]model.LoadMarker, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+loadColumns+` FROM etl_loads ORDER BY started_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list loads")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.LoadMarker
	for rows.Next() {
		m, err := scanLoad(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan load")
		}
		out = append(out, *m)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list loads iterate")
}

func (s *SQLiteStore) ParcelsMissingZip(ctx context.Context, limit, offset int) ([]model.Parcel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+parcelColumns+` FROM properties
		 WHERE address_zip IS NULL OR address_zip = ''
		 ORDER BY id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: parcels missing zip")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Parcel
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan parcel")
		}
		out = append(out, *p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: parcels missing zip iterate")
}

func (s *SQLiteStore) SetZipIfUnknown(ctx context.Context, id, zip string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE properties SET address_zip = ?
		 WHERE id = ? AND (address_zip IS NULL OR address_zip = '')`,
		zip, id,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: set zip %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ParcelZips(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address_zip FROM properties WHERE address_zip IS NOT NULL AND address_zip != ''`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: parcel zips")
	}
	defer rows.Close() //nolint:errcheck

	out := make(map[string]string)
	for rows.Next() {
		var id, zip string
		if err := rows.Scan(&id, &zip); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan parcel zip")
		}
		out[id] = zip
	}
	return out, eris.Wrap(rows.Err(), "sqlite: parcel zips iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `SELECT
		(SELECT COUNT(*) FROM properties),
		(SELECT COUNT(*) FROM properties WHERE address_zip IS NOT NULL AND address_zip != ''),
		(SELECT COUNT(*) FROM ny_property_assessments),
		(SELECT COUNT(*) FROM municipality_assessment_ratios),
		(SELECT COUNT(*) FROM etl_loads WHERE status = 'complete'),
		(SELECT COUNT(*) FROM etl_loads WHERE status = 'failed')`,
	).Scan(&st.Parcels, &st.ParcelsWithZip, &st.Assessments, &st.Ratios, &st.CompletedLoads, &st.FailedLoads)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return &st, nil
}

// helpers

const parcelColumns = `id, swis_code, print_key_code, municipality_code, municipality_name,
	county_name, school_district_code, school_district_name,
	address_street, address_state, address_zip`

const loadColumns = `id, dataset, county_name, year, status, rows_loaded, rows_skipped,
	error, started_at, completed_at`

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

func scanParcel(row scannable) (*model.Parcel, error) {
	var p model.Parcel
	var zip sql.NullString
	err := row.Scan(&p.ID, &p.SwisCode, &p.PrintKeyCode, &p.MunicipalityCode, &p.MunicipalityName,
		&p.CountyName, &p.SchoolDistrictCode, &p.SchoolDistrictName,
		&p.AddressStreet, &p.AddressState, &zip)
	if err != nil {
		return nil, err
	}
	if zip.Valid && zip.String != "" {
		z := zip.String
		p.AddressZip = &z
	}
	return &p, nil
}

func scanLoad(row scannable) (*model.LoadMarker, error) {
	var m model.LoadMarker
	var dataset, status string
	var errMsg sql.NullString
	var completed sql.NullTime
	err := row.Scan(&m.ID, &dataset, &m.CountyName, &m.Year, &status, &m.RowsLoaded, &m.RowsSkipped,
		&errMsg, &m.StartedAt, &completed)
	if err != nil {
		return nil, err
	}
	m.Dataset = model.Dataset(dataset)
	m.Status = model.LoadStatus(status)
	m.Error = errMsg.String
	if completed.Valid {
		t := completed.Time
		m.CompletedAt = &t
	}
	return &m, nil
}
