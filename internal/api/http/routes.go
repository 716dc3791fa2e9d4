package httpapi

import (
	"math"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/climate"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/geocode"
	"github.com/ParminderSinghGithub/WeatherScope-CloudCommanders/internal/orchestrator"
)

var validate = validator.New()

// Default thresholds per condition, matching the public API contract.
const (
	defaultRainThreshold = 0.1  // mm/day
	defaultHeatThreshold = 35.0 // degrees C
	defaultColdThreshold = 5.0  // degrees C
	defaultWindThreshold = 15.0 // m/s
)

type handlers struct {
	orc *orchestrator.Orchestrator
	geo *geocode.Resolver
}

// RegisterRoutes wires the probability endpoints into the Fiber app. A nil
// orchestrator yields 503 on every probability route, covering the window
// before the composition root finished initializing.
func RegisterRoutes(app *fiber.App, orc *orchestrator.Orchestrator, geo *geocode.Resolver) {
	h := &handlers{orc: orc, geo: geo}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Weather Probabilities API",
			"status":  "healthy",
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	app.Get("/probability/rain", h.condition("threshold", defaultRainThreshold,
		func(threshold float64) func(climate.Observation) bool {
			return func(o climate.Observation) bool { return o.Precip > threshold }
		}))
	app.Get("/probability/heat", h.condition("threshold", defaultHeatThreshold,
		func(threshold float64) func(climate.Observation) bool {
			return func(o climate.Observation) bool { return o.TempMax > threshold }
		}))
	app.Get("/probability/cold", h.condition("threshold", defaultColdThreshold,
		func(threshold float64) func(climate.Observation) bool {
			return func(o climate.Observation) bool { return o.TempMin < threshold }
		}))
	app.Get("/probability/wind", h.condition("threshold", defaultWindThreshold,
		func(threshold float64) func(climate.Observation) bool {
			return func(o climate.Observation) bool { return o.WindSpeed > threshold }
		}))
	app.Get("/probability/all", h.all)
}

// probabilityQuery holds the shared query parameters of every probability
// endpoint.
type probabilityQuery struct {
	Lat       *float64 `validate:"omitempty,gte=-90,lte=90"`
	Lon       *float64 `validate:"omitempty,gte=-180,lte=180"`
	City      string
	Country   string
	Month     int `validate:"required,gte=1,lte=12"`
	Day       int `validate:"required,gte=1,lte=31"`
	YearsBack int `validate:"gte=1,lte=30"`
	Mode      string
}

func (p *probabilityQuery) bind(c *fiber.Ctx) error {
	if s := c.Query("lat"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid lat")
		}
		p.Lat = &v
	}
	if s := c.Query("lon"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid lon")
		}
		p.Lon = &v
	}
	p.City = c.Query("city")
	p.Country = c.Query("country")
	p.Month = c.QueryInt("month")
	p.Day = c.QueryInt("day")
	p.YearsBack = c.QueryInt("years_back", 10)
	p.Mode = c.Query("mode")

	if err := validate.Struct(p); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// toQuery resolves the location (direct coordinates or geocoded city) and
// builds the validated domain query.
func (h *handlers) toQuery(p *probabilityQuery) (climate.Query, error) {
	mode, err := climate.ParseMode(p.Mode)
	if err != nil {
		return climate.Query{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var loc climate.Location
	switch {
	case p.Lat != nil && p.Lon != nil:
		loc = climate.Location{Lat: *p.Lat, Lon: *p.Lon}
	case p.City != "" && p.Country != "":
		if h.geo == nil || !h.geo.Enabled() {
			return climate.Query{}, fiber.NewError(fiber.StatusBadRequest, "city/country lookup is not configured; provide lat and lon")
		}
		loc, err = h.geo.Resolve(p.City, p.Country)
		if err != nil {
			return climate.Query{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	default:
		return climate.Query{}, fiber.NewError(fiber.StatusBadRequest, "lat and lon (or city and country) are required")
	}

	q := climate.Query{
		Location:  loc,
		Day:       climate.CalendarDay{Month: p.Month, Day: p.Day},
		YearsBack: p.YearsBack,
		Mode:      mode,
	}
	if err := q.Validate(); err != nil {
		return climate.Query{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return q, nil
}

// condition builds a handler for a single-condition probability endpoint.
func (h *handlers) condition(thresholdParam string, defaultThreshold float64, predicate func(float64) func(climate.Observation) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if h.orc == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "weather service unavailable")
		}

		var p probabilityQuery
		if err := p.bind(c); err != nil {
			return err
		}
		q, err := h.toQuery(&p)
		if err != nil {
			return err
		}
		threshold := c.QueryFloat(thresholdParam, defaultThreshold)

		record := h.orc.Decide(c.Context(), q)
		probability := climate.Probability(record.Primary.Observations, predicate(threshold))

		resp := fiber.Map{
			"probability":   round3(probability),
			"threshold":     threshold,
			"data_points":   len(record.Primary.Observations),
			"source":        sourceLabel(record),
			"success":       record.Primary.Success,
			"mode":          record.Mode,
			"request_id":    record.RequestID,
			"fallback_used": record.FallbackUsed,
			"location":      q.Location,
			"date":          q.Day,
		}
		if record.FallbackReason != "" {
			resp["fallback_reason"] = record.FallbackReason
		}
		addHybrid(resp, record)

		return c.JSON(resp)
	}
}

// all computes every condition probability in one pass over the same data.
func (h *handlers) all(c *fiber.Ctx) error {
	if h.orc == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "weather service unavailable")
	}

	var p probabilityQuery
	if err := p.bind(c); err != nil {
		return err
	}
	q, err := h.toQuery(&p)
	if err != nil {
		return err
	}

	rainThreshold := c.QueryFloat("rain_threshold", defaultRainThreshold)
	heatThreshold := c.QueryFloat("heat_threshold", defaultHeatThreshold)
	coldThreshold := c.QueryFloat("cold_threshold", defaultColdThreshold)
	windThreshold := c.QueryFloat("wind_threshold", defaultWindThreshold)

	record := h.orc.Decide(c.Context(), q)
	data := record.Primary.Observations

	resp := fiber.Map{
		"rain": fiber.Map{
			"probability": round3(climate.Probability(data, func(o climate.Observation) bool { return o.Precip > rainThreshold })),
			"threshold":   rainThreshold,
		},
		"heat": fiber.Map{
			"probability": round3(climate.Probability(data, func(o climate.Observation) bool { return o.TempMax > heatThreshold })),
			"threshold":   heatThreshold,
		},
		"cold": fiber.Map{
			"probability": round3(climate.Probability(data, func(o climate.Observation) bool { return o.TempMin < coldThreshold })),
			"threshold":   coldThreshold,
		},
		"wind": fiber.Map{
			"probability": round3(climate.Probability(data, func(o climate.Observation) bool { return o.WindSpeed > windThreshold })),
			"threshold":   windThreshold,
		},
		"source":          sourceLabel(record),
		"success":         record.Primary.Success,
		"mode":            record.Mode,
		"request_id":      record.RequestID,
		"fallback_used":   record.FallbackUsed,
		"data_points":     len(data),
		"location":        q.Location,
		"date":            q.Day,
		"historical_data": data,
	}
	if record.FallbackReason != "" {
		resp["fallback_reason"] = record.FallbackReason
	}
	addHybrid(resp, record)

	return c.JSON(resp)
}

// addHybrid attaches the two-sided detail when present (hybrid mode only).
func addHybrid(resp fiber.Map, record climate.DecisionRecord) {
	if record.Hybrid == nil {
		return
	}
	resp["sources"] = fiber.Map{
		"precise": sourceSummary(record.Hybrid.Precise),
		"fast":    sourceSummary(record.Hybrid.Fast),
	}
	if record.Hybrid.Comparison != nil {
		resp["comparison"] = record.Hybrid.Comparison
	}
}

func sourceSummary(r climate.SourceResult) fiber.Map {
	m := fiber.Map{
		"source":      r.Source,
		"data_points": len(r.Observations),
		"success":     r.Success,
		"elapsed_ms":  r.Elapsed.Milliseconds(),
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}

func sourceLabel(record climate.DecisionRecord) string {
	if record.FallbackUsed && record.Primary.Success {
		return record.Primary.Source + " (fallback)"
	}
	return record.Primary.Source
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
