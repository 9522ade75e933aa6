package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"github.com/raktseva/raktseva-api/pkg/circuitbreaker"
	"github.com/raktseva/raktseva-api/pkg/metrics"
)

// Geocoder resolves a city name to coordinates. A nil result pair means
// the lookup failed or returned nothing; callers store nulls and move on.
type Geocoder interface {
	Lookup(ctx context.Context, city string) (lat, lon *float64)
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type coords struct {
	lat, lon *float64
}

type httpGeocoder struct {
	cfg     Config
	client  *http.Client
	cache   *cache.Cache
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
}

// New creates a geocoder backed by a Google-style geocoding endpoint.
// Results (including failed lookups) are cached per city for 24h, and a
// circuit breaker keeps a dead endpoint from slowing profile writes.
func New(cfg Config, m *metrics.Metrics) Geocoder {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &httpGeocoder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  cache.New(24*time.Hour, time.Hour),
		breaker: circuitbreaker.New(circuitbreaker.Settings{
			MaxFailures: 5,
			Cooldown:    time.Minute,
		}),
		metrics: m,
	}
}

type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (g *httpGeocoder) Lookup(ctx context.Context, city string) (*float64, *float64) {
	if city == "" {
		return nil, nil
	}

	if cached, found := g.cache.Get(city); found {
		if g.metrics != nil {
			g.metrics.GeocodeCacheHits.Inc()
		}
		c := cached.(coords)
		return c.lat, c.lon
	}

	if g.metrics != nil {
		g.metrics.GeocodeLookups.Inc()
	}

	var lat, lon *float64
	err := g.breaker.Execute(func() error {
		var fetchErr error
		lat, lon, fetchErr = g.fetch(ctx, city)
		return fetchErr
	})
	if err != nil {
		if g.metrics != nil {
			g.metrics.GeocodeFailures.Inc()
		}
		log.Warn().Err(err).Str("city", city).Msg("geocoding failed, storing null coordinates")
		return nil, nil
	}

	g.cache.Set(city, coords{lat: lat, lon: lon}, cache.DefaultExpiration)
	return lat, lon
}

func (g *httpGeocoder) fetch(ctx context.Context, city string) (*float64, *float64, error) {
	endpoint := fmt.Sprintf("%s?address=%s&key=%s",
		g.cfg.BaseURL, url.QueryEscape(city), url.QueryEscape(g.cfg.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("geocoding endpoint returned %d", resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, nil, err
	}
	if len(body.Results) == 0 {
		return nil, nil, fmt.Errorf("no results for %q", city)
	}

	loc := body.Results[0].Geometry.Location
	return &loc.Lat, &loc.Lng, nil
}
