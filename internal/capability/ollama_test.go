package capability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{Response: "NO"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, time.Second)
	out, err := c.Generate(context.Background(), "does this need internet", "llama3.2")
	require.NoError(t, err)

	assert.Equal(t, "NO", out)
	assert.Equal(t, "llama3.2", got.Model)
	assert.Equal(t, "does this need internet", got.Prompt)
	assert.False(t, got.Stream)
	assert.Empty(t, got.Format)
}

func TestOllamaGenerateJSONSetsFormat(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(generateResponse{Response: "{}"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, time.Second)
	_, err := c.GenerateJSON(context.Background(), "extract", "llama3.2")
	require.NoError(t, err)
	assert.Equal(t, "json", got.Format)
}

func TestOllamaGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, time.Second)
	_, err := c.Generate(context.Background(), "hi", "missing-model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestOllamaGenerateUnreachable(t *testing.T) {
	c := NewOllamaClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.Generate(context.Background(), "hi", "llama3.2")
	assert.Error(t, err)
}
