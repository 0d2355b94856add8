// Package homevalue loads the Zillow single-family home value index for the
// tracked counties. The source is the wide City ZHVI CSV: one row per
// municipality and one column per month.
package homevalue

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cny-realestate-etl/internal/model"
)

// Identity columns of the City ZHVI file.
const (
	colRegion = "RegionName"
	colCounty = "CountyName"
	colState  = "State"
)

// Parsed is the outcome of reading one ZHVI file.
type Parsed struct {
	Values []model.HomeValue
	// Rows counts municipalities kept for the tracked counties.
	Rows int64
	// Invalid counts rows with a missing or too-short identity field.
	Invalid int64
}

// Parse reads a City ZHVI CSV and returns the monthly values for
// municipalities in counties. Empty, zero and unparseable cells are dropped.
// Columns whose header is not a YYYY-MM-DD date are ignored.
func Parse(ctx context.Context, r io.Reader, counties []string) (*Parsed, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("homevalue: empty file")
	}
	if err != nil {
		return nil, eris.Wrap(err, "homevalue: read header")
	}
	cols, err := newLayout(header)
	if err != nil {
		return nil, err
	}

	canonical := make(map[string]string, len(counties))
	for _, c := range counties {
		canonical[strings.ToLower(c)] = c
	}

	log := zap.L().With(zap.String("component", "homevalue"))
	out := &Parsed{}
	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "homevalue: context cancelled")
		}
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "homevalue: read line %d", line)
		}

		region, county, state := cols.field(record, cols.region), cols.field(record, cols.county), cols.field(record, cols.state)
		if len(region) < 2 || len(county) < 2 || len(state) < 2 {
			out.Invalid++
			log.Warn("invalid row", zap.Int("line", line), zap.String("region", region))
			continue
		}
		if state != model.StateNY {
			continue
		}
		name, ok := canonical[strings.ToLower(strings.TrimSuffix(county, " County"))]
		if !ok {
			continue
		}

		out.Rows++
		for _, m := range cols.months {
			idx, ok := cellValue(cols.field(record, m.index))
			if !ok {
				continue
			}
			out.Values = append(out.Values, model.HomeValue{
				MunicipalityName: region,
				CountyName:       name,
				State:            state,
				Month:            m.month,
				Index:            idx,
			})
		}
	}
	return out, nil
}

type monthColumn struct {
	index int
	month string
}

type layout struct {
	region, county, state int
	months                []monthColumn
}

func newLayout(header []string) (*layout, error) {
	l := &layout{region: -1, county: -1, state: -1}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case colRegion:
			l.region = i
		case colCounty:
			l.county = i
		case colState:
			l.state = i
		default:
			if d, err := time.Parse("2006-01-02", h); err == nil {
				l.months = append(l.months, monthColumn{index: i, month: d.Format("2006-01")})
			}
		}
	}
	if l.region < 0 || l.county < 0 || l.state < 0 {
		return nil, eris.Errorf("homevalue: header missing %s, %s or %s", colRegion, colCounty, colState)
	}
	return l, nil
}

func (l *layout) field(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// cellValue parses a monthly index. Zillow leaves months before coverage
// began empty, and a zero index is not a price.
func cellValue(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
