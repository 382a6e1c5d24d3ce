// Package llm talks to an OpenAI-compatible chat completion API. The
// default target is a local Ollama server.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	"github.com/use-agent/truthlens/config"
	"github.com/use-agent/truthlens/models"
)

// Client sends single-turn prompts and returns the reply text.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
}

// NewClient builds a Client from LLMConfig.
func NewClient(cfg config.LLMConfig) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	temp := float32(cfg.Temperature)
	if temp == 0 {
		// go-openai omits a zero temperature, and Ollama then falls back
		// to its own non-zero default.
		temp = math.SmallestNonzeroFloat32
	}

	return &Client{
		client:      openai.NewClientWithConfig(oc),
		model:       cfg.Model,
		temperature: temp,
	}
}

// Chat sends one system and one user message and returns the first choice.
func (c *Client) Chat(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return "", models.NewError(models.ErrCodeLLMFailure, "LLM returned no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// classifyError maps provider failures to error codes.
func classifyError(err error) *models.Error {
	status := 0
	msg := "LLM request failed"

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		if apiErr.Message != "" {
			msg = apiErr.Message
		}
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return models.NewError(models.ErrCodeLLMAuthFailure, msg, err)
	case http.StatusTooManyRequests:
		return models.NewError(models.ErrCodeLLMRateLimited, msg, err)
	case 0:
		return models.NewError(models.ErrCodeLLMFailure, msg, err)
	default:
		return models.NewError(models.ErrCodeLLMFailure, fmt.Sprintf("LLM API returned %d: %s", status, msg), err)
	}
}
