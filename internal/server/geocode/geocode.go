// Package geocode turns a free-text location into a place name and point.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/yelpcamp/internal/common"
	"github.com/dmitrijs2005/yelpcamp/internal/server/models"
)

// ErrNoMatch is returned when the location resolves to nothing.
var ErrNoMatch = fmt.Errorf("%w: location not found", common.ErrorValidation)

type Place struct {
	Name     string
	Geometry models.Point
}

type Geocoder interface {
	Forward(ctx context.Context, query string) (*Place, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// MapboxClient calls a Mapbox-compatible forward geocoding endpoint.
type MapboxClient struct {
	baseURL string
	token   string
	client  httpDoer
}

var _ Geocoder = (*MapboxClient)(nil)

func NewMapboxClient(baseURL, token string) *MapboxClient {
	return &MapboxClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type featureCollection struct {
	Features []struct {
		PlaceName string `json:"place_name"`
		Geometry  struct {
			Type        string     `json:"type"`
			Coordinates [2]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

func (c *MapboxClient) Forward(ctx context.Context, query string) (*Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrNoMatch
	}

	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		c.baseURL,
		url.PathEscape(query),
		url.Values{"access_token": {c.token}, "limit": {"1"}}.Encode(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrorUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: geocoding request: %w", common.ErrorUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: geocoding status %d", common.ErrorUpstream, resp.StatusCode)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("%w: decoding geocoding response: %w", common.ErrorUpstream, err)
	}

	if len(fc.Features) == 0 {
		return nil, ErrNoMatch
	}

	f := fc.Features[0]
	if f.Geometry.Type != "" && f.Geometry.Type != "Point" {
		return nil, fmt.Errorf("%w: unexpected geometry %q", common.ErrorUpstream, f.Geometry.Type)
	}

	return &Place{
		Name:     f.PlaceName,
		Geometry: models.NewPoint(f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]),
	}, nil
}

// Static resolves every location to the same point. It is used when no
// geocoder token is configured.
type Static struct {
	Point models.Point
}

func (s Static) Forward(ctx context.Context, query string) (*Place, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrNoMatch
	}
	return &Place{Name: query, Geometry: s.Point}, nil
}

// IsNoMatch reports whether err means the location was not found.
func IsNoMatch(err error) bool {
	return errors.Is(err, ErrNoMatch)
}
