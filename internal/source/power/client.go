package power

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/source"
)

const (
	defaultBaseURL = "https://power.larc.nasa.gov/api/temporal/daily/point"
	parameters     = "PRECTOTCORR,T2M_MAX,T2M_MIN,WS10M"

	// POWER uses large negative numbers as fill values for missing data.
	fillThreshold = -900
)

// Client implements source.FastSource against the NASA POWER daily point API.
// POWER only serves contiguous date ranges, so the one-day-per-year series is
// assembled from one small request per year, fanned out concurrently.
type Client struct {
	doer    *source.Doer
	baseURL string
	nowYear func() int
}

// NewClient creates a POWER client. timeout bounds each per-year call
// including retries.
func NewClient(client *http.Client, timeout time.Duration) *Client {
	return &Client{
		doer:    source.NewDoer(client, "nasa_power", timeout),
		baseURL: defaultBaseURL,
		nowYear: func() int { return time.Now().UTC().Year() },
	}
}

func (c *Client) Name() string {
	return "NASA POWER"
}

// FetchSeries fetches the requested calendar day for each of the last
// yearsBack years. Per-year failures are tolerated; the whole call fails only
// when the context is cancelled.
func (c *Client) FetchSeries(ctx context.Context, loc climate.Location, day climate.CalendarDay, yearsBack int) ([]climate.Observation, error) {
	current := c.nowYear()

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		out []climate.Observation
	)

	for year := current - yearsBack; year < current; year++ {
		year := year
		wg.Add(1)
		go func() {
			defer wg.Done()
			obs, ok := c.fetchOne(ctx, loc, year, day)
			if !ok {
				return
			}
			mu.Lock()
			out = append(out, obs)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) fetchOne(ctx context.Context, loc climate.Location, year int, day climate.CalendarDay) (climate.Observation, bool) {
	stamp := fmt.Sprintf("%04d%02d%02d", year, day.Month, day.Day)

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("parameters", parameters)
		values.Set("community", "RE")
		values.Set("longitude", fmt.Sprintf("%g", loc.Lon))
		values.Set("latitude", fmt.Sprintf("%g", loc.Lat))
		values.Set("start", stamp)
		values.Set("end", stamp)
		values.Set("format", "JSON")
		return http.NewRequest(http.MethodGet, c.baseURL+"?"+values.Encode(), nil)
	}

	resp, err := c.doer.Do(ctx, buildRequest)
	if err != nil {
		return climate.Observation{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return climate.Observation{}, false
	}

	var payload struct {
		Properties struct {
			Parameter map[string]map[string]float64 `json:"parameter"`
		} `json:"properties"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return climate.Observation{}, false
	}

	p := payload.Properties.Parameter
	tmax, okMax := lookup(p, "T2M_MAX", stamp)
	tmin, okMin := lookup(p, "T2M_MIN", stamp)
	precip, okPrecip := lookup(p, "PRECTOTCORR", stamp)
	wind, okWind := lookup(p, "WS10M", stamp)
	if !okMax || !okMin || !okPrecip || !okWind {
		return climate.Observation{}, false
	}

	return climate.Observation{
		Date:      fmt.Sprintf("%04d-%02d-%02d", year, day.Month, day.Day),
		TempMax:   tmax,
		TempMin:   tmin,
		Precip:    precip,
		WindSpeed: wind,
	}, true
}

func lookup(params map[string]map[string]float64, name, stamp string) (float64, bool) {
	series, ok := params[name]
	if !ok {
		return 0, false
	}
	val, ok := series[stamp]
	if !ok || val < fillThreshold {
		return 0, false
	}
	return val, true
}
