package homevalue

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cny-realestate-etl/internal/model"
)

const zhviCSV = `RegionID,SizeRank,RegionName,RegionType,StateName,State,Metro,CountyName,2024-01-31,2024-02-29,2024-03-31
1,10,Syracuse,city,NY,NY,"Syracuse, NY",Onondaga County,180000.5,,181200
2,20,Auburn,city,NY,NY,"Auburn, NY",Cayuga County,0,150000,151000
3,30,Albany,city,NY,NY,"Albany, NY",Albany County,250000,251000,252000
4,40,Oswego,city,PA,PA,,Oswego County,90000,91000,92000
5,50,X,city,NY,NY,,Madison County,1,2,3
6,60,Hamilton,city,NY,NY,,Madison County,n/a,210000,NaN
`

func TestParse_FiltersCountiesAndCells(t *testing.T) {
	got, err := Parse(context.Background(), strings.NewReader(zhviCSV), model.Counties)
	require.NoError(t, err)

	assert.Equal(t, int64(3), got.Rows)
	assert.Equal(t, int64(1), got.Invalid)
	assert.Equal(t, []model.HomeValue{
		{MunicipalityName: "Syracuse", CountyName: "Onondaga", State: "NY", Month: "2024-01", Index: 180000.5},
		{MunicipalityName: "Syracuse", CountyName: "Onondaga", State: "NY", Month: "2024-03", Index: 181200},
		{MunicipalityName: "Auburn", CountyName: "Cayuga", State: "NY", Month: "2024-02", Index: 150000},
		{MunicipalityName: "Auburn", CountyName: "Cayuga", State: "NY", Month: "2024-03", Index: 151000},
		{MunicipalityName: "Hamilton", CountyName: "Madison", State: "NY", Month: "2024-02", Index: 210000},
	}, got.Values)
}

func TestParse_CountyMatchIgnoresCase(t *testing.T) {
	in := "RegionName,State,CountyName,2024-01-31\nCortland,NY,CORTLAND COUNTY,120000\n"
	got, err := Parse(context.Background(), strings.NewReader(in), []string{"Cortland"})
	require.NoError(t, err)
	require.Len(t, got.Values, 1)
	assert.Equal(t, "Cortland", got.Values[0].CountyName)
}

func TestParse_ByteOrderMark(t *testing.T) {
	in := "\ufeffRegionName,State,CountyName,2024-01-31\nOswego,NY,Oswego County,95000\n"
	got, err := Parse(context.Background(), strings.NewReader(in), model.Counties)
	require.NoError(t, err)
	require.Len(t, got.Values, 1)
	assert.Equal(t, "Oswego", got.Values[0].MunicipalityName)
}

func TestParse_BadHeader(t *testing.T) {
	_, err := Parse(context.Background(), strings.NewReader("RegionName,State,2024-01-31\n"), model.Counties)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header missing")

	_, err = Parse(context.Background(), strings.NewReader(""), model.Counties)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty file")
}

func TestParse_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, strings.NewReader(zhviCSV), model.Counties)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
