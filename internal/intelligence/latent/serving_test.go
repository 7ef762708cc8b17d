package latent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

func TestServingEncoder_Predict(t *testing.T) {
	var got predictRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/models/seqquant_aptamer:predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"predictions":[[0.1,0.2],[0.3,0.4]]}`))
	}))
	defer srv.Close()

	enc, err := NewServingEncoder(ServingConfig{
		Endpoint: srv.URL + "/", Model: "seqquant_aptamer", SignatureName: "serving_default", Timeout: time.Second,
	}, nil)
	require.NoError(t, err)
	defer enc.Close()

	batch := polymer.BatchTensor{Items: []polymer.Matrix{matrix(2, 2, 1, 2, 3, 4), matrix(2, 2)}}
	out, err := enc.Infer(context.Background(), batch)
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, out)
	assert.Equal(t, "serving_default", got.SignatureName)
	assert.Equal(t, [][][]float32{{{1, 2}, {3, 4}}, {{0, 0}, {0, 0}}}, got.Instances)
	assert.Equal(t, "serving/seqquant_aptamer", enc.Name())
}

func TestServingEncoder_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		},
		"error field": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"error":"bad input"}`))
		},
		"rows": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"predictions":[]}`))
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			enc, err := NewServingEncoder(ServingConfig{Endpoint: srv.URL, Model: "m"}, nil)
			require.NoError(t, err)

			_, err = enc.Infer(context.Background(), polymer.BatchTensor{Items: []polymer.Matrix{matrix(1, 1, 1)}})
			assert.True(t, errors.IsCode(err, errors.ErrCodeInferenceFailed), "got %v", err)
		})
	}
}

func TestServingEncoder_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	enc, err := NewServingEncoder(ServingConfig{Endpoint: url, Model: "m", Timeout: time.Second}, nil)
	require.NoError(t, err)
	_, err = enc.Infer(context.Background(), polymer.BatchTensor{Items: []polymer.Matrix{matrix(1, 1)}})
	assert.True(t, errors.IsCode(err, errors.ErrCodeInferenceFailed))
}

func TestNewServingEncoder_Validation(t *testing.T) {
	_, err := NewServingEncoder(ServingConfig{Model: "m"}, nil)
	assert.Error(t, err)
	_, err = NewServingEncoder(ServingConfig{Endpoint: "http://x"}, nil)
	assert.Error(t, err)

	enc, err := NewServingEncoder(ServingConfig{Endpoint: "http://x", Model: "m"}, nil)
	require.NoError(t, err)
	_, err = enc.Infer(context.Background(), polymer.BatchTensor{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeEmptyInferenceBatch))
}
