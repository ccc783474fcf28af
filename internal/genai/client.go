// Package genai talks to the Gemini generateContent API, requesting
// JSON-schema constrained output so replies can be parsed into memo drafts.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Schema describes the expected JSON output structure for structured replies.
type Schema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]SchemaProperty `json:"properties"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// SchemaProperty describes a single field within a Schema.
type SchemaProperty struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Client communicates with the Gemini API over HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// New creates a Client for the given base URL, API key, and model name.
func New(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 0,
		},
	}
}

type textPart struct {
	Text string `json:"text"`
}

type content struct {
	Role  string     `json:"role,omitempty"`
	Parts []textPart `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType   string  `json:"responseMimeType"`
	ResponseJSONSchema *Schema `json:"responseJsonSchema,omitempty"`
}

// generateRequest is the JSON body for POST /models/{model}:generateContent.
type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

// generateResponse is the JSON returned by generateContent.
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends one user message and returns the model's reply text. When
// jsonSchema is non-nil the response is constrained to JSON matching it.
// systemInstruction may be empty.
func (c *Client) Generate(ctx context.Context, message, systemInstruction string, jsonSchema *Schema) (string, error) {
	gr := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []textPart{{Text: message}}},
		},
		GenerationConfig: generationConfig{
			ResponseMIMEType:   "application/json",
			ResponseJSONSchema: jsonSchema,
		},
	}
	if systemInstruction != "" {
		gr.SystemInstruction = &content{Parts: []textPart{{Text: systemInstruction}}}
	}

	body, err := json.Marshal(gr)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("generate: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding generate response: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generate: empty candidates")
	}
	return result.Candidates[0].Content.Parts[0].Text, nil
}
