package earthdata

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(srv.Client(), 0.2)
	c.searchURL = srv.URL
	return c, srv
}

func TestSearchGranules(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("short_name"); got != "GPM_3IMERGDF" {
			t.Errorf("short_name = %q, want GPM_3IMERGDF", got)
		}
		if got := q.Get("cloud_hosted"); got != "true" {
			t.Errorf("cloud_hosted = %q, want true", got)
		}
		if got := q.Get("bounding_box"); got == "" {
			t.Error("missing bounding_box")
		}
		if !strings.Contains(q.Get("temporal"), "2023-06-15") {
			t.Errorf("temporal = %q, want the requested day", q.Get("temporal"))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"feed": {"entry": [
			{"id": "G1", "links": [
				{"rel": "http://esipfed.org/ns/fedsearch/1.1/metadata#", "href": "https://meta.example/g1"},
				{"rel": "http://esipfed.org/ns/fedsearch/1.1/data#", "href": "https://data.example/g1.nc4"}
			]},
			{"id": "G2", "links": [
				{"rel": "http://esipfed.org/ns/fedsearch/1.1/data#", "href": "s3://bucket/g2"}
			]}
		]}}`)
	})

	start := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	refs, err := c.SearchGranules(context.Background(), climate.Location{Lat: 40.71, Lon: -74.01}, start, start.Add(24*time.Hour), source.VariablePrecip)
	if err != nil {
		t.Fatalf("SearchGranules: %v", err)
	}

	// G2 carries only an s3 link and is dropped.
	if len(refs) != 1 {
		t.Fatalf("got %d refs, want 1", len(refs))
	}
	ref := refs[0]
	if ref.ID != "G1" || ref.URL != "https://data.example/g1.nc4" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if ref.Year != 2023 || ref.Variable != source.VariablePrecip {
		t.Fatalf("ref metadata = year %d variable %v", ref.Year, ref.Variable)
	}
}

func TestSearchGranulesThermoShortName(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("short_name"); got != "M2T1NXSLV" {
			t.Errorf("short_name = %q, want M2T1NXSLV", got)
		}
		fmt.Fprint(w, `{"feed": {"entry": []}}`)
	})

	start := time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC)
	refs, err := c.SearchGranules(context.Background(), climate.Location{}, start, start.Add(24*time.Hour), source.VariableThermo)
	if err != nil {
		t.Fatalf("SearchGranules: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("got %d refs from an empty feed", len(refs))
	}
}

func TestReadPrecip(t *testing.T) {
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ".ascii") {
			t.Errorf("path = %q, want an .ascii suffix", r.URL.Path)
		}
		fmt.Fprint(w, "Dataset: granule\nprecipitation[0][1059][1307], 3.25\n")
	})

	ref := source.GranuleRef{ID: "G1", URL: srv.URL + "/granule"}
	got, err := c.ReadPrecip(context.Background(), ref, climate.Location{Lat: 40.71, Lon: -74.01})
	if err != nil {
		t.Fatalf("ReadPrecip: %v", err)
	}
	if got != 3.25 {
		t.Fatalf("precip = %v, want 3.25", got)
	}
}

func TestReadPrecipEmptyResponse(t *testing.T) {
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Dataset: granule\n")
	})

	ref := source.GranuleRef{ID: "G1", URL: srv.URL + "/granule"}
	if _, err := c.ReadPrecip(context.Background(), ref, climate.Location{}); err == nil {
		t.Fatal("expected error for a response with no values")
	}
}

func TestReadThermo(t *testing.T) {
	c, srv := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Dataset: granule\n"+
			"T2M[0:23][261][169], 285.15, 295.15\n"+
			"U10M[0:23][261][169], 3, 4\n"+
			"V10M[0:23][261][169], 4, 3\n")
	})

	ref := source.GranuleRef{ID: "G1", URL: srv.URL + "/granule"}
	got, err := c.ReadThermo(context.Background(), ref, climate.Location{Lat: 40.71, Lon: -74.01})
	if err != nil {
		t.Fatalf("ReadThermo: %v", err)
	}

	if math.Abs(got.TempMax-22.0) > 1e-9 {
		t.Errorf("TempMax = %v, want 22.0", got.TempMax)
	}
	if math.Abs(got.TempMin-12.0) > 1e-9 {
		t.Errorf("TempMin = %v, want 12.0", got.TempMin)
	}
	if math.Abs(got.WindSpeed-5.0) > 1e-9 {
		t.Errorf("WindSpeed = %v, want 5.0", got.WindSpeed)
	}
}

func TestParseASCII(t *testing.T) {
	body := "Dataset: x\n" +
		"precipitation[0][100][200], 1.5\n" +
		"T2M[0:1][10][20], 280.0, 281.5\n" +
		"garbage line\n" +
		"[no name], 4\n"

	got := parseASCII(body)
	if len(got["precipitation"]) != 1 || got["precipitation"][0] != 1.5 {
		t.Errorf("precipitation = %v", got["precipitation"])
	}
	if len(got["T2M"]) != 2 || got["T2M"][1] != 281.5 {
		t.Errorf("T2M = %v", got["T2M"])
	}
	if len(got) != 2 {
		t.Errorf("parsed %d variables, want 2: %v", len(got), got)
	}
}

func TestGridIndex(t *testing.T) {
	tests := []struct {
		coord, origin, step float64
		size, want          int
	}{
		{-74.01, -180, 0.1, 3600, 1060},
		{40.71, -90, 0.1, 1800, 1307},
		{-90, -90, 0.5, 361, 0},
		{90, -90, 0.5, 361, 360},
		{-200, -180, 0.1, 3600, 0},   // clamped low
		{200, -180, 0.1, 3600, 3599}, // clamped high
	}
	for _, tt := range tests {
		if got := gridIndex(tt.coord, tt.origin, tt.step, tt.size); got != tt.want {
			t.Errorf("gridIndex(%v, %v, %v, %d) = %d, want %d", tt.coord, tt.origin, tt.step, tt.size, got, tt.want)
		}
	}
}

func parseBBox(t *testing.T, s string) [4]float64 {
	t.Helper()

	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		t.Fatalf("malformed bbox %q", s)
	}
	var out [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			t.Fatalf("malformed bbox %q: %v", s, err)
		}
		out[i] = v
	}
	return out
}

func TestTinyBBox(t *testing.T) {
	box := parseBBox(t, tinyBBox(climate.Location{Lat: 40.7, Lon: -74.0}, 0.2))
	want := [4]float64{-74.2, 40.5, -73.8, 40.9}
	for i := range want {
		if math.Abs(box[i]-want[i]) > 1e-9 {
			t.Errorf("bbox[%d] = %v, want %v", i, box[i], want[i])
		}
	}

	// Near the pole the box clamps to the valid range.
	box = parseBBox(t, tinyBBox(climate.Location{Lat: 89.95, Lon: 179.95}, 0.2))
	if box[2] > 180 || box[3] > 90 {
		t.Errorf("bbox not clamped at the pole: %v", box)
	}
}
