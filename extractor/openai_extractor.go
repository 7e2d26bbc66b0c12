package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	Logger "github.com/JamisonProctor/planz/utils/log"
)

var ErrMissingApiKey = errors.New("OPENAI_API_KEY is not set")

const extractionPrompt = "Return STRICT JSON only. Extract real-world events from the provided text. " +
	"Output a JSON object with a single key `events` containing objects with: " +
	"title, start_time, end_time, location, description, detail_url. " +
	"Use ISO 8601 with the %s timezone when possible. If end_time is unknown, omit it. " +
	"detail_url is the absolute link to the event's own page, omit it if there is none."

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// OpenAIEventExtractor asks a chat completion model in JSON mode for the events
// listed on a page.
type OpenAIEventExtractor struct {
	client   *resty.Client
	model    string
	timezone string
}

func NewOpenAIEventExtractor(apiKey string, baseUrl string, model string, timezone string, timeout time.Duration) (*OpenAIEventExtractor, error) {
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
	return &OpenAIEventExtractor{client: client, model: model, timezone: timezone}, nil
}

func (e *OpenAIEventExtractor) Extract(ctx context.Context, content string, sourceUrl string) ([]RawEvent, error) {
	text, err := HtmlToMarkdown(content, sourceUrl)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: e.model,
			Messages: []chatMessage{
				{Role: "system", Content: "You return JSON only."},
				{Role: "user", Content: fmt.Sprintf("Source URL: %s\n\nText:\n%s", sourceUrl, text)},
				{Role: "user", Content: fmt.Sprintf(extractionPrompt, e.timezone)},
			},
			ResponseFormat: map[string]string{"type": "json_object"},
			Temperature:    0.2,
		}).
		SetResult(&chatResponse{}).
		Post("/chat/completions")
	if err != nil {
		return nil, errors.Wrapf(err, "extraction request failed for %s", sourceUrl)
	}
	if resp.IsError() {
		return nil, errors.Errorf("extraction request failed for %s: http %d %s", sourceUrl, resp.StatusCode(), resp.String())
	}
	answer, ok := resp.Result().(*chatResponse)
	if !ok || len(answer.Choices) == 0 {
		return nil, errors.Errorf("extraction response for %s has no choices", sourceUrl)
	}
	return parseEvents(answer.Choices[0].Message.Content, sourceUrl), nil
}

// parseEvents reads the `events` list of a JSON answer. Malformed answers
// yield no events rather than an error.
func parseEvents(content string, sourceUrl string) []RawEvent {
	if strings.TrimSpace(content) == "" {
		return []RawEvent{}
	}
	var data struct {
		Events json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		Logger.Log.WithFields(logrus.Fields{"url": sourceUrl}).Error("model returned invalid JSON for extraction: ", err)
		return []RawEvent{}
	}
	var items []interface{}
	if len(data.Events) == 0 || json.Unmarshal(data.Events, &items) != nil {
		return []RawEvent{}
	}
	events := make([]RawEvent, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]interface{}); ok {
			events = append(events, RawEvent(m))
		}
	}
	return events
}
