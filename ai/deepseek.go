package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/korjavin/gmatbot/models"
)

const (
	deepseekAPIURL = "https://api.deepseek.com/v1/chat/completions"
	apiTimeoutSec  = 60
)

// DeepseekClient manages interactions with Deepseek API
type DeepseekClient struct {
	apiKey string
	apiURL string
	client *http.Client
}

// NewDeepseekClient creates a new Deepseek API client
func NewDeepseekClient(apiKey string) *DeepseekClient {
	return &DeepseekClient{
		apiKey: apiKey,
		apiURL: deepseekAPIURL,
		client: &http.Client{Timeout: apiTimeoutSec * time.Second},
	}
}

type deepseekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepseekRequest struct {
	Model    string            `json:"model"`
	Messages []deepseekMessage `json:"messages"`
}

type deepseekResponseChoice struct {
	Message deepseekMessage `json:"message"`
}

type deepseekResponse struct {
	Choices []deepseekResponseChoice `json:"choices"`
	ID      string                   `json:"id,omitempty"`
}

var languageNames = map[models.Language]string{
	models.LanguageKorean:  "Korean",
	models.LanguageEnglish: "English",
}

// Explain asks Deepseek why the question's answer is correct, in lang
func (c *DeepseekClient) Explain(ctx context.Context, question *models.Question, lang models.Language) (string, error) {
	startTime := time.Now()
	log.Printf("Requesting %s explanation of %s question %d from Deepseek", lang, question.Subject, question.Number)

	var choices strings.Builder
	for i, choice := range question.Choices {
		fmt.Fprintf(&choices, "%c. %s\n", 'A'+i, choice)
	}
	answer := "?"
	if question.Answer >= 1 && question.Answer <= len(question.Choices) {
		answer = string(rune('A' + question.Answer - 1))
	}
	languageName := languageNames[lang]
	if languageName == "" {
		languageName = "English"
	}

	prompt := fmt.Sprintf(`The following is a GMAT %s question. Briefly explain why the correct answer is right.

Question: %s

Choices:
%s
Correct answer: %s

Requirements:
1. Write the explanation in %s.
2. Use at most 10 lines.
3. Answer in plain text without markdown.
`, question.Subject.Label(), question.Prompt, choices.String(), answer, languageName)

	reqJSON, err := json.Marshal(deepseekRequest{
		Model:    "deepseek-chat",
		Messages: []deepseekMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, apiTimeoutSec*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(reqJSON))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			log.Printf("Deepseek API request timed out after %v", time.Since(startTime))
		}
		return "", fmt.Errorf("deepseek request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("Deepseek request failed with status %d: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	var deepseekResp deepseekResponse
	if err := json.Unmarshal(body, &deepseekResp); err != nil {
		return "", fmt.Errorf("parse deepseek response: %w", err)
	}
	if len(deepseekResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in API response")
	}

	content := strings.TrimSpace(deepseekResp.Choices[0].Message.Content)
	log.Printf("Explanation of question %d received in %v (%d bytes)", question.Number, time.Since(startTime), len(content))
	return content, nil
}
