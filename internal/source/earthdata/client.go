package earthdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source"
)

const (
	defaultCMRGranuleURL = "https://cmr.earthdata.nasa.gov/search/granules.json"

	// Collection short names: IMERG daily precipitation and MERRA-2 hourly
	// single-level diagnostics.
	imergShortName = "GPM_3IMERGDF"
	merraShortName = "M2T1NXSLV"
)

// Client implements source.PreciseSource against NASA Earthdata Cloud: narrow
// CMR searches per (year, variable) and single-point OPeNDAP reads against the
// matched granule. Authentication (Earthdata bearer token or netrc) is assumed
// to be handled by the deployment environment.
type Client struct {
	search    *source.Doer
	read      *source.Doer
	searchURL string
	radiusDeg float64
}

// NewClient creates an Earthdata client. radiusDeg is the half-width of the
// spatial bounding box used to keep CMR result sets tiny.
func NewClient(client *http.Client, radiusDeg float64) *Client {
	return &Client{
		search:    source.NewDoer(client, "cmr_search", 10*time.Second),
		read:      source.NewDoer(client, "earthdata_read", 20*time.Second),
		searchURL: defaultCMRGranuleURL,
		radiusDeg: radiusDeg,
	}
}

// SearchGranules runs a narrow CMR search (24h temporal window, tiny bbox) and
// returns at most a handful of cloud-hosted granule references.
func (c *Client) SearchGranules(ctx context.Context, loc climate.Location, start, end time.Time, v source.Variable) ([]source.GranuleRef, error) {
	shortName := imergShortName
	if v == source.VariableThermo {
		shortName = merraShortName
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("short_name", shortName)
		values.Set("temporal", start.UTC().Format(time.RFC3339)+","+end.UTC().Format(time.RFC3339))
		values.Set("bounding_box", tinyBBox(loc, c.radiusDeg))
		values.Set("cloud_hosted", "true")
		values.Set("page_size", "10")
		return http.NewRequest(http.MethodGet, c.searchURL+"?"+values.Encode(), nil)
	}

	resp, err := c.search.Do(ctx, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("cmr search %s: %w", shortName, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Feed struct {
			Entry []struct {
				ID    string `json:"id"`
				Links []struct {
					Rel  string `json:"rel"`
					Href string `json:"href"`
				} `json:"links"`
			} `json:"entry"`
		} `json:"feed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("cmr search %s: decode: %w", shortName, err)
	}

	var refs []source.GranuleRef
	for _, entry := range payload.Feed.Entry {
		href := dataLink(entry.Links)
		if href == "" {
			continue
		}
		refs = append(refs, source.GranuleRef{
			ID:       entry.ID,
			URL:      href,
			Year:     start.UTC().Year(),
			Variable: v,
		})
	}
	return refs, nil
}

// ReadPrecip reads the IMERG daily precipitation value at the grid cell
// nearest to loc, slicing a single point instead of fetching the granule.
func (c *Client) ReadPrecip(ctx context.Context, ref source.GranuleRef, loc climate.Location) (float64, error) {
	// IMERG is a 0.1 degree global grid with dimensions (time, lon, lat).
	lonIdx := gridIndex(loc.Lon, -180, 0.1, 3600)
	latIdx := gridIndex(loc.Lat, -90, 0.1, 1800)
	ce := fmt.Sprintf("precipitation[0][%d][%d]", lonIdx, latIdx)

	values, err := c.readASCII(ctx, ref.URL, ce)
	if err != nil {
		return 0, err
	}
	precip, ok := firstValues(values, "precipitation", 1)
	if !ok {
		return 0, fmt.Errorf("read precip %s: no value in response", ref.ID)
	}
	return precip[0], nil
}

// ReadThermo reads the 24 hourly MERRA-2 T2M/U10M/V10M values at the nearest
// grid cell and reduces them to daily max/min temperature and mean wind speed.
func (c *Client) ReadThermo(ctx context.Context, ref source.GranuleRef, loc climate.Location) (source.Thermo, error) {
	// MERRA-2 grid: 0.5 degree latitude x 0.625 degree longitude,
	// dimensions (time, lat, lon).
	latIdx := gridIndex(loc.Lat, -90, 0.5, 361)
	lonIdx := gridIndex(loc.Lon, -180, 0.625, 576)
	ce := fmt.Sprintf("T2M[0:23][%d][%d],U10M[0:23][%d][%d],V10M[0:23][%d][%d]",
		latIdx, lonIdx, latIdx, lonIdx, latIdx, lonIdx)

	values, err := c.readASCII(ctx, ref.URL, ce)
	if err != nil {
		return source.Thermo{}, err
	}

	t, okT := firstValues(values, "T2M", 1)
	u, okU := firstValues(values, "U10M", 1)
	v, okV := firstValues(values, "V10M", 1)
	if !okT {
		return source.Thermo{}, fmt.Errorf("read thermo %s: no temperature values", ref.ID)
	}

	tmax, tmin := t[0], t[0]
	for _, k := range t[1:] {
		tmax = math.Max(tmax, k)
		tmin = math.Min(tmin, k)
	}

	var wind float64
	if okU && okV && len(u) == len(v) && len(u) > 0 {
		var sum float64
		for i := range u {
			sum += math.Hypot(u[i], v[i])
		}
		wind = sum / float64(len(u))
	}

	return source.Thermo{
		TempMax:   kelvinToCelsius(tmax),
		TempMin:   kelvinToCelsius(tmin),
		WindSpeed: wind,
	}, nil
}

// readASCII fetches an OPeNDAP ascii point slice and returns the parsed
// values grouped by variable name.
func (c *Client) readASCII(ctx context.Context, granuleURL, constraint string) (map[string][]float64, error) {
	buildRequest := func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, granuleURL+".ascii?"+url.QueryEscape(constraint), nil)
	}

	resp, err := c.read.Do(ctx, buildRequest)
	if err != nil {
		return nil, fmt.Errorf("opendap read: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("opendap read: %w", err)
	}
	return parseASCII(string(body)), nil
}

// parseASCII extracts values from an OPeNDAP ascii response. Data lines look
// like "T2M[0][180][288], 285.25" with the variable name leading the index
// brackets; everything else is ignored.
func parseASCII(body string) map[string][]float64 {
	out := make(map[string][]float64)
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		open := strings.IndexByte(line, '[')
		comma := strings.IndexByte(line, ',')
		if open <= 0 || comma < open {
			continue
		}
		name := line[:open]
		for _, field := range strings.Split(line[comma+1:], ",") {
			val, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				continue
			}
			out[name] = append(out[name], val)
		}
	}
	return out
}

// firstValues returns the parsed values for name when at least min are
// present.
func firstValues(values map[string][]float64, name string, min int) ([]float64, bool) {
	v, ok := values[name]
	if !ok || len(v) < min {
		return nil, false
	}
	return v, true
}

// dataLink picks the first https data-access link from a CMR entry.
func dataLink(links []struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}) string {
	for _, l := range links {
		if strings.Contains(l.Rel, "/data#") && strings.HasPrefix(l.Href, "https://") {
			return l.Href
		}
	}
	return ""
}

// tinyBBox returns a clamped "W,S,E,N" bounding box around the point, small
// enough that CMR never returns thousands of matches.
func tinyBBox(loc climate.Location, radius float64) string {
	w := math.Max(-180, loc.Lon-radius)
	e := math.Min(180, loc.Lon+radius)
	s := math.Max(-90, loc.Lat-radius)
	n := math.Min(90, loc.Lat+radius)
	return fmt.Sprintf("%g,%g,%g,%g", w, s, e, n)
}

// gridIndex maps a coordinate onto a regular grid, clamped to valid indices.
func gridIndex(coord, origin, step float64, size int) int {
	idx := int(math.Round((coord - origin) / step))
	if idx < 0 {
		return 0
	}
	if idx >= size {
		return size - 1
	}
	return idx
}

func kelvinToCelsius(k float64) float64 {
	return k - 273.15
}
