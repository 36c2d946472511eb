package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Question is the raw provider payload for a single question. Text fields
// arrive HTML-escaped.
type Question struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type questionsResponse struct {
	ResponseCode int        `json:"response_code"`
	Results      []Question `json:"results"`
}

type tokenResponse struct {
	ResponseCode int    `json:"response_code"`
	Token        string `json:"token"`
}

// RequestTimeout bounds every provider request. The game engine holds a
// lobby lock across provider calls, so the lock's TTL must outlast this.
const RequestTimeout = 10 * time.Second

// Client talks to the external trivia question provider.
type Client struct {
	http     *http.Client
	apiURL   string
	tokenURL string
	amount   int
}

func NewClient(apiURL, tokenURL string, amount int) *Client {
	return &Client{
		http:     &http.Client{Timeout: RequestTimeout},
		apiURL:   apiURL,
		tokenURL: tokenURL,
		amount:   amount,
	}
}

// Token requests a session token from the provider. Passing the token back
// on question requests prevents repeats for the duration of a game.
func (c *Client) Token(ctx context.Context) (string, error) {
	var resp tokenResponse
	if err := c.getJSON(ctx, c.tokenURL, &resp); err != nil {
		return "", fmt.Errorf("trivia token request: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("trivia token request: empty token (code %d)", resp.ResponseCode)
	}
	return resp.Token, nil
}

// Questions fetches one batch. token may be empty (training mode does not
// need repeat suppression).
func (c *Client) Questions(ctx context.Context, token string) ([]Question, error) {
	url := fmt.Sprintf("%s?amount=%d", c.apiURL, c.amount)
	if token != "" {
		url += "&token=" + token
	}

	var resp questionsResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("trivia questions request: %w", err)
	}
	if resp.ResponseCode != 0 {
		return nil, fmt.Errorf("trivia questions request: provider code %d", resp.ResponseCode)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("trivia questions request: empty batch")
	}

	return resp.Results, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
