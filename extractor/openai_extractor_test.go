package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatAnswer(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]interface{}{"role": "assistant", "content": content}},
		},
	}
}

func TestOpenAIEventExtractor(t *testing.T) {
	var received chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatAnswer(`{"events": [
			{"title": "Vorlesestunde", "start_time": "2026-01-17T10:00:00+01:00", "location": "Stadtbibliothek"},
			"not an object"
		]}`))
	}))
	defer server.Close()

	e, err := NewOpenAIEventExtractor("sk-test", server.URL, "gpt-4o-mini", "Europe/Berlin", 5*time.Second)
	require.NoError(t, err)
	events, err := e.Extract(context.Background(), "<h1>Programm</h1><script>track()</script>", "https://kids.de/programm")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "Vorlesestunde", events[0].String("title"))
	assert.Equal(t, "", events[0].String("end_time"))

	assert.Equal(t, "gpt-4o-mini", received.Model)
	assert.Equal(t, "json_object", received.ResponseFormat["type"])
	require.Len(t, received.Messages, 3)
	assert.Contains(t, received.Messages[1].Content, "Source URL: https://kids.de/programm")
	assert.Contains(t, received.Messages[1].Content, "# Programm")
	assert.NotContains(t, received.Messages[1].Content, "track()")
	assert.Contains(t, received.Messages[2].Content, "Europe/Berlin")
}

func TestOpenAIEventExtractorMalformedAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatAnswer("this is not json"))
	}))
	defer server.Close()

	e, err := NewOpenAIEventExtractor("sk-test", server.URL, "m", "Europe/Berlin", 5*time.Second)
	require.NoError(t, err)
	events, err := e.Extract(context.Background(), "<p>x</p>", "https://kids.de")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOpenAIEventExtractorHttpError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer server.Close()

	e, err := NewOpenAIEventExtractor("sk-test", server.URL, "m", "Europe/Berlin", 5*time.Second)
	require.NoError(t, err)
	_, err = e.Extract(context.Background(), "<p>x</p>", "https://kids.de")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "http 400"))
}

func TestOpenAIEventExtractorNeedsKey(t *testing.T) {
	_, err := NewOpenAIEventExtractor("", "http://localhost", "m", "Europe/Berlin", time.Second)
	assert.True(t, errors.Is(err, ErrMissingApiKey))
}

func TestParseEvents(t *testing.T) {
	assert.Empty(t, parseEvents("", "u"))
	assert.Empty(t, parseEvents(`{"events": "none"}`, "u"))
	assert.Empty(t, parseEvents(`{"other": []}`, "u"))
	assert.Len(t, parseEvents(`{"events": [{"title": "a"}, {"title": "b"}]}`, "u"), 2)
}

func TestHtmlToMarkdown(t *testing.T) {
	md, err := HtmlToMarkdown(`<h1>Kinder</h1><script>alert(1)</script><p>Am <a href="/e/1">Samstag</a></p>`, "https://kids.de")
	require.NoError(t, err)
	assert.Contains(t, md, "# Kinder")
	assert.Contains(t, md, "Samstag")
	assert.Contains(t, md, "https://kids.de/e/1")
	assert.NotContains(t, md, "alert")
}
