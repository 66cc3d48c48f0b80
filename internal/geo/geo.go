// Package geo suggests French municipalities for the job-site city field.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"
)

// DefaultBaseURL is the public address API of the French government.
const DefaultBaseURL = "https://api-adresse.data.gouv.fr"

// MinQueryLength is the length a query must exceed before the API is called.
const MinQueryLength = 2

// MaxSuggestions caps the number of results.
const MaxSuggestions = 5

// Suggestion is one municipality offered to the user.
type Suggestion struct {
	Label string `json:"label"` // "Mérignac (33)"
	Value string `json:"value"` // "Mérignac"
	// Coordinates are [longitude, latitude].
	Coordinates [2]float64 `json:"coordinates"`
}

// Lat returns the latitude.
func (s Suggestion) Lat() float64 { return s.Coordinates[1] }

// Lon returns the longitude.
func (s Suggestion) Lon() float64 { return s.Coordinates[0] }

// APIError is a non-2xx answer from the geocoder.
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("geocoder answered %d", e.Status)
}

// Client calls the municipality search endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	group      singleflight.Group
}

// NewClient constructs a geocoder client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Suggest returns up to MaxSuggestions municipalities matching query.
// Queries of MinQueryLength characters or fewer return nil without a request.
// Identical concurrent queries share one upstream call. The shared call is
// bounded by the client timeout, not by any one caller's context.
func (c *Client) Suggest(ctx context.Context, query string) ([]Suggestion, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) <= MinQueryLength {
		return nil, nil
	}
	ch := c.group.DoChan(strings.ToLower(query), func() (any, error) {
		return c.search(context.WithoutCancel(ctx), query)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]Suggestion)
		return append([]Suggestion(nil), shared...), nil
	}
}

type searchResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
		Properties struct {
			Name     string `json:"name"`
			Postcode string `json:"postcode"`
		} `json:"properties"`
	} `json:"features"`
}

func (c *Client) search(ctx context.Context, query string) ([]Suggestion, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "municipality")
	q.Set("limit", fmt.Sprint(MaxSuggestions))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode}
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}

	out := make([]Suggestion, 0, len(body.Features))
	for _, f := range body.Features {
		if len(out) == MaxSuggestions {
			break
		}
		s := Suggestion{
			Label: fmt.Sprintf("%s (%s)", f.Properties.Name, department(f.Properties.Postcode)),
			Value: f.Properties.Name,
		}
		if len(f.Geometry.Coordinates) >= 2 {
			s.Coordinates = [2]float64{f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]}
		}
		out = append(out, s)
	}
	return out, nil
}

// department returns the first two characters of a postcode.
func department(postcode string) string {
	r := []rune(postcode)
	if len(r) > 2 {
		r = r[:2]
	}
	return string(r)
}
