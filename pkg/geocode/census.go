package geocode

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cny-realestate-etl/internal/resilience"
)

const (
	censusBatchURL  = "https://geocoding.geo.census.gov/geocoder/locations/addressbatch"
	censusBenchmark = "Public_AR_Current"
)

// BatchGeocode uploads addresses as a CSV file and parses the CSV answer.
func (g *geocoder) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Match, error) {
	if len(addrs) == 0 {
		return nil, nil
	}
	if len(addrs) > MaxBatchSize {
		return nil, eris.Errorf("geocode: batch of %d exceeds limit %d", len(addrs), MaxBatchSize)
	}

	payload, err := encodeBatch(addrs)
	if err != nil {
		return nil, err
	}

	return resilience.Call(ctx, g.retry, func(ctx context.Context) ([]Match, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "geocode: census batch rate limit")
		}

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		if err := writer.WriteField("benchmark", g.benchmark); err != nil {
			return nil, eris.Wrap(err, "geocode: census batch write benchmark")
		}
		part, err := writer.CreateFormFile("addressFile", "addresses.csv")
		if err != nil {
			return nil, eris.Wrap(err, "geocode: census batch create form file")
		}
		if _, err := part.Write(payload); err != nil {
			return nil, eris.Wrap(err, "geocode: census batch write csv")
		}
		if err := writer.Close(); err != nil {
			return nil, eris.Wrap(err, "geocode: census batch close writer")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.batchURL, &buf)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: census batch build request")
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "geocode: census batch request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if err := resilience.CheckResponse("geocode: census batch", resp); err != nil {
			return nil, err
		}
		return parseCensusBatch(resp.Body)
	})
}

// encodeBatch renders the Census input format: id,street,city,state,zip
// with no header row.
func encodeBatch(addrs []AddressInput) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, a := range addrs {
		if err := w.Write([]string{a.ID, a.Street, a.City, a.State, a.Zip}); err != nil {
			return nil, eris.Wrap(err, "geocode: encode batch")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, eris.Wrap(err, "geocode: encode batch")
	}
	return buf.Bytes(), nil
}

// parseCensusBatch reads rows of the form
//
//	"id","input","Match","Exact","matched address","lon,lat","tiger id","side"
//
// No_Match and Tie rows carry only the first three columns.
func parseCensusBatch(r io.Reader) ([]Match, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var out []Match
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "geocode: census batch parse")
		}
		if len(rec) < 3 {
			continue
		}
		m := Match{
			ID:    strings.TrimSpace(rec[0]),
			Input: strings.TrimSpace(rec[1]),
		}
		var quality string
		if len(rec) > 3 {
			quality = rec[3]
		}
		m.Status = censusStatus(rec[2], quality)
		if len(rec) > 4 {
			m.MatchedAddress = strings.TrimSpace(rec[4])
			m.Zip = zipFromMatched(m.MatchedAddress)
		}
		out = append(out, m)
	}
	return out, nil
}

func censusStatus(match, quality string) MatchStatus {
	switch strings.ToLower(strings.TrimSpace(match)) {
	case "match":
		if strings.EqualFold(strings.TrimSpace(quality), "exact") {
			return StatusExact
		}
		return StatusPartial
	case "tie":
		return StatusTied
	default:
		return StatusNone
	}
}

// zipFromMatched returns the last comma-separated part of a matched address,
// e.g. "100 MAIN ST, SYRACUSE, NY, 13202" yields "13202".
func zipFromMatched(addr string) string {
	if addr == "" {
		return ""
	}
	parts := strings.Split(addr, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}
