package sensorapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/02loveslollipop/ward-monitor/internal/series"
)

func TestFetchSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/sensors/icu-temp/minutes" || q.Get("order") != "desc" || q.Get("limit") != "60" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("x-api-key") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"minute_timestamp":"2025-03-04T10:14:00Z","avg_value":"21.5","min_value":21.1,"max_value":"22"},
			{"minute_timestamp":"2025-03-04T10:13:00Z","avg_value":"oops","min_value":null,"max_value":null}
		]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL+"/", "secret", "", nil)
	require.NoError(t, err)

	samples, err := client.FetchSamples(context.Background(), "sensors/icu-temp/minutes", Query{})
	require.NoError(t, err)
	require.Len(t, samples, 2)
	require.Equal(t, series.Field("21.5"), samples[0].AvgValue)
	require.Equal(t, series.Field("21.1"), samples[0].MinValue)
	require.Equal(t, series.Field("oops"), samples[1].AvgValue)
}

func TestFetchSamplesStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "", "X-Token", nil)
	require.NoError(t, err)

	_, err = client.FetchSamples(context.Background(), "/s", Query{Order: OrderAsc, Limit: 5})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusBadGateway, statusErr.Code)
}

func TestFetchSamplesDecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "", "", nil)
	require.NoError(t, err)

	_, err = client.FetchSamples(context.Background(), "/s", Query{})
	require.ErrorContains(t, err, "decode payload")
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient("  ", "", "", nil)
	require.Error(t, err)
}
