package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cny-realestate-etl/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

var parcelCols = []string{
	"id", "swis_code", "print_key_code", "municipality_code", "municipality_name",
	"county_name", "school_district_code", "school_district_name",
	"address_street", "address_state", "address_zip",
}

func TestPostgresStore_GetParcel_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, swis_code, .* FROM properties WHERE id = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	p, err := s.GetParcel(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetParcel_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	zip := "13201"
	mock.ExpectQuery(`FROM properties WHERE id = \$1`).
		WithArgs("311500 1.-1-1").
		WillReturnRows(pgxmock.NewRows(parcelCols).AddRow(
			"311500 1.-1-1", "311500", "1.-1-1", "311500", "Syracuse",
			"Onondaga", "311500", "Syracuse", "100 Main St", "NY", &zip,
		))

	p, err := s.GetParcel(context.Background(), "311500 1.-1-1")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "13201", p.Zip())
	assert.Equal(t, "Onondaga", p.CountyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAssessment_Insert(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	p := testParcel("311500 1.-1-1", "Onondaga")
	a := testAssessment(p.ID, 2024)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "properties" .* ON CONFLICT \("id"\) DO NOTHING`).
		WithArgs(parcelArgs(p)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO "ny_property_assessments" .* ON CONFLICT \("property_id", "roll_year"\) DO UPDATE`).
		WithArgs(assessmentArgs(a)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, s.SaveAssessment(context.Background(), ParcelInsert, p, a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAssessment_UpdateMissing(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	p := testParcel("311500 1.-1-1", "Onondaga")

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE properties`).
		WithArgs(p.AddressStreet, "NY", nil, p.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := s.SaveAssessment(context.Background(), ParcelUpdate, p, testAssessment(p.ID, 2024))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parcel not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveAssessment_RollbackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	p := testParcel("311500 1.-1-1", "Onondaga")
	a := testAssessment(p.ID, 2024)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "ny_property_assessments"`).
		WithArgs(assessmentArgs(a)...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveAssessment(context.Background(), ParcelKeep, p, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert assessment")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ClearAssessments(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM ny_property_assessments`).
		WithArgs(2024, "Oswego").
		WillReturnResult(pgxmock.NewResult("DELETE", 42))
	mock.ExpectExec(`DELETE FROM etl_loads`).
		WithArgs("assessments", "Oswego", 2024).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	n, err := s.ClearAssessments(context.Background(), "Oswego", 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertRatio(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	r := model.AssessmentRatio{MunicipalityCode: "050100", RateYear: 2024, MunicipalityName: "Auburn", CountyName: "Cayuga", ResidentialAssessmentRatio: 87.5}

	mock.ExpectExec(`INSERT INTO "municipality_assessment_ratios" .* VALUES \(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(ratioArgs(r)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertRatio(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertHomeValues(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	values := []model.HomeValue{
		{MunicipalityName: "Auburn", CountyName: "Cayuga", State: "NY", Month: "2024-01", Index: 165000},
		{MunicipalityName: "Auburn", CountyName: "Cayuga", State: "NY", Month: "2024-02", Index: 166250.5},
	}

	mock.ExpectBegin()
	for _, h := range values {
		mock.ExpectExec(`INSERT INTO "zillow_home_value_index_sfh" .* ON CONFLICT \("municipality_name", "county_name", "state", "date"\) DO UPDATE`).
			WithArgs(homeValueArgs(h)...).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
	}
	mock.ExpectCommit()

	n, err := s.UpsertHomeValues(context.Background(), values)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertHomeValues_RollbackOnError(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	h := model.HomeValue{MunicipalityName: "Auburn", CountyName: "Cayuga", State: "NY", Month: "2024-01", Index: 165000}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "zillow_home_value_index_sfh"`).
		WithArgs(homeValueArgs(h)...).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	n, err := s.UpsertHomeValues(context.Background(), []model.HomeValue{h})
	require.Error(t, err)
	assert.Equal(t, int64(0), n)
	assert.Contains(t, err.Error(), "upsert home value Auburn/2024-01")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LastLoad(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	started := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	var completed *time.Time

	mock.ExpectQuery(`SELECT id, dataset, .* FROM etl_loads`).
		WithArgs("assessments", "Cortland", 2025).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "dataset", "county_name", "year", "status", "rows_loaded", "rows_skipped",
			"error", "started_at", "completed_at",
		}).AddRow("l1", "assessments", "Cortland", 2025, "running", int64(0), int64(0), (*string)(nil), started, completed))

	m, err := s.LastLoad(context.Background(), model.DatasetAssessments, "Cortland", 2025)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.LoadStatusRunning, m.Status)
	assert.Equal(t, started, m.StartedAt)
	assert.Nil(t, m.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LastLoad_None(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM etl_loads`).
		WithArgs("ratios", "Cortland", 2025).
		WillReturnError(pgx.ErrNoRows)

	m, err := s.LastLoad(context.Background(), model.DatasetRatios, "Cortland", 2025)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetZipIfUnknown(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE properties SET address_zip = \$1`).
		WithArgs("13201", "311500 1.-1-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := s.SetZipIfUnknown(context.Background(), "311500 1.-1-1", "13201")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteLoad_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE etl_loads SET status = \$1`).
		WithArgs("complete", int64(1), int64(0), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteLoad(context.Background(), "missing", 1, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS municipality_assessment_ratios`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
