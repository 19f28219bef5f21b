package listings

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jbcholat-Dev/Estimation-immo/internal/geocoding"
)

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) First(ctx context.Context, address string) (geocoding.Candidate, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(geocoding.Candidate), args.Error(1)
}

func completion(content string) []byte {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return body
}

const twoListings = `{"properties": [
	{"address": "12 avenue de Genève, Thonon-les-Bains", "price": 420000, "surface": 95, "rooms": 4,
	 "property_type": "appartement", "listing_url": "https://example.test/1", "publication_date": "2025-05-02",
	 "description": "Vue lac", "latitude": 46.37, "longitude": 6.48},
	{"address": "3 rue des Granges, Thonon-les-Bains", "price": 310000, "surface": 70, "rooms": 3,
	 "property_type": "appartement", "listing_url": "https://example.test/2", "publication_date": "N/A",
	 "description": "Centre"}
]}`

func newTestClient(t *testing.T, handler http.HandlerFunc, geocoder Geocoder) (*Client, *int32) {
	t.Helper()

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	c := NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     server.URL,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
		Timeout:     time.Second,
	}, geocoder, logger)
	return c, &calls
}

func thononQuery() Query {
	return Query{City: "Thonon-les-Bains", PostalCode: "74200", PropertyType: "appartement", RadiusKm: 5}
}

func TestSearchParsesAndEnriches(t *testing.T) {
	geocoder := new(MockGeocoder)
	geocoder.On("First", mock.Anything, "3 rue des Granges, Thonon-les-Bains").
		Return(geocoding.Candidate{Latitude: 46.3705, Longitude: 6.4790}, nil)

	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sonar", req.Model)
		assert.Equal(t, 0.2, req.Temperature)
		assert.Equal(t, 0.9, req.TopP)
		if assert.Len(t, req.Messages, 1) {
			assert.Contains(t, req.Messages[0].Content, "Thonon-les-Bains (74200)")
		}

		w.Write(completion(twoListings))
	}, geocoder)

	listings := c.Search(context.Background(), thononQuery())

	require.Len(t, listings, 2)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 420000.0, *listings[0].Price)
	assert.Equal(t, 46.37, *listings[0].Latitude)
	require.True(t, listings[1].HasCoordinates())
	assert.Equal(t, 46.3705, *listings[1].Latitude)
	geocoder.AssertExpectations(t)
}

func TestSearchRetriesRateLimit(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write(completion(`{"properties": [{"address": "1 place du Marché", "price": 250000}]}`))
	}, nil)

	listings := c.Search(context.Background(), thononQuery())

	require.Len(t, listings, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestSearchGivesUpAfterMaxAttempts(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, nil)

	listings := c.Search(context.Background(), thononQuery())
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))

	_, err := c.complete(context.Background(), "prompt")
	assert.True(t, errors.Is(err, ErrRateLimited))
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write(completion(`{"properties": []}`))
	}, nil)

	listings := c.Search(context.Background(), thononQuery())
	assert.Empty(t, listings)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestSearchDoesNotRetryClientErrors(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, nil)

	assert.Empty(t, c.Search(context.Background(), thononQuery()))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestSearchRetriesTimeouts(t *testing.T) {
	var n int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		w.Write(completion(`{"properties": [{"address": "1 quai de Ripaille"}]}`))
	}, nil)
	c.cfg.Timeout = 50 * time.Millisecond

	listings := c.Search(context.Background(), thononQuery())
	require.Len(t, listings, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestIsTransient(t *testing.T) {
	wrap := func(err error) error {
		return &url.Error{Op: "Post", URL: "https://api.example.test/chat/completions", Err: err}
	}

	tests := []struct {
		name      string
		err       error
		transient bool
	}{
		{"connection refused", wrap(&net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}), true},
		{"attempt deadline", wrap(context.DeadlineExceeded), true},
		{"wrapped deadline", fmt.Errorf("request: %w", context.DeadlineExceeded), true},
		{"caller cancelled", wrap(context.Canceled), false},
		{"unsupported scheme", wrap(errors.New(`unsupported protocol scheme "ftp"`)), false},
		{"certificate rejected", wrap(&tls.CertificateVerificationError{Err: errors.New("x509: certificate signed by unknown authority")}), false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, isTransient(tt.err))
		})
	}
}

func TestSearchMalformedPayloads(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte(`<html>oops</html>`)},
		{"no choices", []byte(`{"choices": []}`)},
		{"empty content", completion("")},
		{"content is prose", completion("Voici les biens trouvés : aucun.")},
		{"missing properties", completion(`{"results": []}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write(tt.body)
			}, nil)

			listings := c.Search(context.Background(), thononQuery())
			assert.NotNil(t, listings)
			assert.Empty(t, listings)
		})
	}
}

func TestSearchDropsInvalidListings(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(completion("```json\n" + `{"properties": [
			{"address": "", "price": 100000},
			{"address": "5 rue Vallon", "price": -5},
			{"address": "7 rue Vallon", "surface": -1},
			{"address": "9 rue Vallon", "price": "cher"},
			{"address": "11 rue Vallon", "price": 199000, "surface": 48}
		]}` + "\n```"))
	}, nil)

	listings := c.Search(context.Background(), thononQuery())
	require.Len(t, listings, 1)
	assert.Equal(t, "11 rue Vallon", listings[0].Address)
}

func TestSearchKeepsListingWhenGeocodingFails(t *testing.T) {
	geocoder := new(MockGeocoder)
	geocoder.On("First", mock.Anything, mock.Anything).Return(geocoding.Candidate{}, geocoding.ErrNoResults)

	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(completion(`{"properties": [{"address": "lieu-dit inconnu"}]}`))
	}, geocoder)

	listings := c.Search(context.Background(), thononQuery())
	require.Len(t, listings, 1)
	assert.False(t, listings[0].HasCoordinates())
}

func TestSearchDisabledClient(t *testing.T) {
	c := NewClient(Config{}, nil, logrus.New())

	assert.False(t, c.Enabled())
	assert.Empty(t, c.Search(context.Background(), thononQuery()))

	_, err := c.complete(context.Background(), "prompt")
	assert.True(t, errors.Is(err, ErrClientDisabled))
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```json{\"a\": 1}```", `{"a": 1}`},
		{"  \n```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}

func TestBuildSearchPrompt(t *testing.T) {
	prompt := buildSearchPrompt(Query{City: "Annecy", PostalCode: "74000", PriceMax: 500000})

	assert.Contains(t, prompt, "Annecy (74000)")
	assert.Contains(t, prompt, "Type de bien: all")
	assert.Contains(t, prompt, "Fourchette de prix: N/A - 500000 euros")
	assert.Contains(t, prompt, "rayon de 5km")
	assert.Contains(t, prompt, `{"properties": []}`)
}
