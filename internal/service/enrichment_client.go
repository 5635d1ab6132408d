package service

import (
	"assessment_backend/internal/config"
	"assessment_backend/internal/model"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SubdomainRequest is the context payload for one per-subdomain
// enrichment call, assembled at page-save time.
type SubdomainRequest struct {
	ToolID         string             `json:"toolId"`
	ClientID       uint               `json:"clientId"`
	SubdomainKey   string             `json:"subdomainKey"`
	SubdomainLabel string             `json:"subdomainLabel"`
	FreeText       string             `json:"freeText"`
	Aspects        model.AspectScores `json:"aspects"`
}

// DomainRequest feeds one domain synthesis: the domain's score block
// plus its three cached subdomain insights (entries may be nil).
type DomainRequest struct {
	Label      string                    `json:"label"`
	Score      model.DomainScore         `json:"score"`
	Subdomains []model.SubdomainScore    `json:"subdomains"`
	Insights   []*model.SubdomainInsight `json:"insights"`
}

// OverallRequest feeds the final cross-domain synthesis.
type OverallRequest struct {
	Hierarchy *model.ScoreHierarchy  `json:"hierarchy"`
	Domain1   *model.DomainSynthesis `json:"domain1"`
	Domain2   *model.DomainSynthesis `json:"domain2"`
}

// Enricher is the external narrative-enrichment collaborator. Any call
// may fail or time out; callers own the fallback behavior.
type Enricher interface {
	SubdomainInsight(ctx context.Context, req SubdomainRequest) (*model.SubdomainInsight, error)
	DomainSynthesis(ctx context.Context, req DomainRequest) (*model.DomainSynthesis, error)
	OverallSynthesis(ctx context.Context, req OverallRequest) (*model.OverallSynthesis, error)
}

// ChatEnricher talks to an OpenAI-compatible chat-completions endpoint
// and parses the model output as strict JSON.
type ChatEnricher struct {
	config config.EnrichmentConfig
	client *http.Client
}

func NewChatEnricher(cfg config.EnrichmentConfig) *ChatEnricher {
	return &ChatEnricher{
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (e *ChatEnricher) SubdomainInsight(ctx context.Context, req SubdomainRequest) (*model.SubdomainInsight, error) {
	system := "You are a grounding-assessment analyst. Read the client's aspect scores and reflection for one subdomain. " +
		"Respond with a single JSON object with exactly these string fields: pattern, insight, rootBelief, action. No markdown, no extra keys."

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	content, err := e.chat(ctx, system, string(payload))
	if err != nil {
		return nil, err
	}

	var insight model.SubdomainInsight
	if err := decodeModelJSON(content, &insight); err != nil {
		return nil, fmt.Errorf("subdomain insight: %w", err)
	}
	return &insight, nil
}

func (e *ChatEnricher) DomainSynthesis(ctx context.Context, req DomainRequest) (*model.DomainSynthesis, error) {
	system := "You are a grounding-assessment analyst. Synthesize the domain's three subdomain insights and scores. " +
		"Respond with a single JSON object with fields: summary (string), keyThemes (array of strings), priorityFocus (string). No markdown."

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	content, err := e.chat(ctx, system, string(payload))
	if err != nil {
		return nil, err
	}

	var synthesis model.DomainSynthesis
	if err := decodeModelJSON(content, &synthesis); err != nil {
		return nil, fmt.Errorf("domain synthesis: %w", err)
	}
	return &synthesis, nil
}

func (e *ChatEnricher) OverallSynthesis(ctx context.Context, req OverallRequest) (*model.OverallSynthesis, error) {
	system := "You are a grounding-assessment analyst. Integrate both domain syntheses and the full score hierarchy. " +
		"Respond with a single JSON object with fields: overview (string), integration (string), coreWork (string), nextSteps (array of strings). No markdown."

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	content, err := e.chat(ctx, system, string(payload))
	if err != nil {
		return nil, err
	}

	var synthesis model.OverallSynthesis
	if err := decodeModelJSON(content, &synthesis); err != nil {
		return nil, fmt.Errorf("overall synthesis: %w", err)
	}
	return &synthesis, nil
}

func (e *ChatEnricher) chat(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: e.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)
	req.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("enrichment API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", err
	}
	if result.Error != nil {
		return "", fmt.Errorf("enrichment API error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("enrichment API returned no choices")
	}

	return result.Choices[0].Message.Content, nil
}

// decodeModelJSON tolerates fenced output but otherwise requires valid JSON.
func decodeModelJSON(content string, out interface{}) error {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return json.Unmarshal([]byte(strings.TrimSpace(content)), out)
}
