package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

var ErrMissingApiKey = errors.New("OPENAI_API_KEY is not set")

type responsesRequest struct {
	Model string              `json:"model"`
	Input string              `json:"input"`
	Tools []map[string]string `json:"tools"`
}

type responsesAnswer struct {
	Output []struct {
		Type   string `json:"type"`
		Action *struct {
			Sources []struct {
				Url string `json:"url"`
			} `json:"sources"`
		} `json:"action"`
		Content []struct {
			Type        string `json:"type"`
			Text        string `json:"text"`
			Annotations []struct {
				Type  string `json:"type"`
				Url   string `json:"url"`
				Title string `json:"title"`
			} `json:"annotations"`
		} `json:"content"`
	} `json:"output"`
}

// OpenAIWebSearchProvider runs queries through the OpenAI Responses API with
// the web_search tool and returns the cited pages.
type OpenAIWebSearchProvider struct {
	client *resty.Client
	model  string
}

func NewOpenAIWebSearchProvider(apiKey string, baseUrl string, model string, timeout time.Duration) (*OpenAIWebSearchProvider, error) {
	if apiKey == "" {
		return nil, ErrMissingApiKey
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseUrl, "/")).
		SetAuthToken(apiKey).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && (r.StatusCode() == 429 || r.StatusCode() >= 500)
		})
	return &OpenAIWebSearchProvider{client: client, model: model}, nil
}

func searchPrompt(query Query, location string, maxResults int) string {
	return fmt.Sprintf(
		"Search the web for: %q (language: %s, location: %s). "+
			"Return up to %d distinct pages that list upcoming events, preferring official "+
			"venue, museum, library and city calendar pages. Cite every page you return.",
		query.Text, query.Language, location, maxResults)
}

func (p *OpenAIWebSearchProvider) Search(ctx context.Context, query Query, location string, maxResults int) ([]SearchResultItem, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(responsesRequest{
			Model: p.model,
			Input: searchPrompt(query, location, maxResults),
			Tools: []map[string]string{{"type": "web_search"}},
		}).
		SetResult(&responsesAnswer{}).
		Post("/responses")
	if err != nil {
		return nil, errors.Wrapf(err, "web search failed for %q", query.Text)
	}
	if resp.IsError() {
		return nil, errors.Errorf("web search failed for %q: http %d %s", query.Text, resp.StatusCode(), resp.String())
	}
	answer, ok := resp.Result().(*responsesAnswer)
	if !ok {
		return nil, errors.New("unexpected web search response")
	}
	return collectCitations(answer, maxResults), nil
}

// collectCitations keeps the first sighting of every cited url, message
// annotations before raw tool sources.
func collectCitations(answer *responsesAnswer, maxResults int) []SearchResultItem {
	items := []SearchResultItem{}
	seen := map[string]bool{}
	add := func(url, title, snippet string) {
		url = strings.TrimSpace(url)
		if url == "" || seen[url] || (maxResults > 0 && len(items) >= maxResults) {
			return
		}
		seen[url] = true
		items = append(items, SearchResultItem{Url: url, Title: title, Snippet: snippet})
	}

	for _, out := range answer.Output {
		for _, content := range out.Content {
			for _, a := range content.Annotations {
				if a.Type == "url_citation" {
					add(a.Url, a.Title, "")
				}
			}
		}
	}
	for _, out := range answer.Output {
		if out.Type == "web_search_call" && out.Action != nil {
			for _, src := range out.Action.Sources {
				add(src.Url, "", "")
			}
		}
	}
	return items
}
