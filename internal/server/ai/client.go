// Package ai invokes the hosted model for document analysis and chat
// answers through the Bedrock runtime API.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sethvargo/go-retry"

	"github.com/m00n5h075/serenya-sub003/internal/common"
	"github.com/m00n5h075/serenya-sub003/internal/server/models"
)

// BedrockAPI is the subset of the Bedrock runtime client used here.
type BedrockAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

const anthropicVersion = "bedrock-2023-05-31"

const analysisSystemPrompt = `You are a clinical document analyst. Read the supplied medical document and respond with a single JSON object:
{"confidence_score": <integer 1-10>, "interpretation": "<plain-language interpretation>", "flags": [<zero or more of "ABNORMAL_VALUES", "URGENT_CONSULTATION", "REQUIRES_FOLLOWUP">]}
Respond with the JSON object only.`

const answerSystemPrompt = `You are answering a patient's follow-up question about a previously analyzed medical document. Respond with a single JSON object:
{"answer": "<plain-language answer>", "follow_up_suggestions": [<up to three short follow-up questions>]}
Respond with the JSON object only.`

type anthropicRequest struct {
	AnthropicVersion string    `json:"anthropic_version"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Messages         []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Client runs model invocations against one configured model id.
type Client struct {
	api     BedrockAPI
	modelID string
}

func NewClient(api BedrockAPI, modelID string) *Client {
	return &Client{api: api, modelID: modelID}
}

// invoke runs one model call with bounded exponential backoff. Transient
// throttling is retried here; the job-level retry budget is not touched.
func (c *Client) invoke(ctx context.Context, req anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var raw []byte
	backoff := retry.WithMaxRetries(2, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(c.modelID),
			ContentType: aws.String("application/json"),
			Accept:      aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		raw = out.Body
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invoke model: %v", common.ErrorDependency, err)
	}

	resp := &anthropicResponse{}
	if err := json.Unmarshal(raw, resp); err != nil {
		return nil, fmt.Errorf("%w: decode model response: %v", common.ErrorDependency, err)
	}
	return resp, nil
}

// text concatenates the text blocks of a model response.
func (r *anthropicResponse) text() string {
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// extractJSON pulls the first top-level JSON object out of model output,
// tolerating prose or fencing around it.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// Analyze asks the model for a structured interpretation of a document.
func (c *Client) Analyze(ctx context.Context, document, docType string) (*models.RawAnalysis, error) {
	resp, err := c.invoke(ctx, anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        2048,
		System:           analysisSystemPrompt,
		Messages: []message{
			{Role: "user", Content: fmt.Sprintf("Document type: %s\n\n%s", docType, document)},
		},
	})
	if err != nil {
		return nil, err
	}

	analysis := &models.RawAnalysis{}
	if err := json.Unmarshal([]byte(extractJSON(resp.text())), analysis); err != nil {
		return nil, fmt.Errorf("%w: unparseable analysis: %v", common.ErrorDependency, err)
	}
	return analysis, nil
}

// Answer asks the model a follow-up question against the prior document
// interpretation.
func (c *Client) Answer(ctx context.Context, question, priorContext string) (*models.ChatAnswer, error) {
	resp, err := c.invoke(ctx, anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        1024,
		System:           answerSystemPrompt,
		Messages: []message{
			{Role: "user", Content: fmt.Sprintf("Prior analysis:\n%s\n\nQuestion: %s", priorContext, question)},
		},
	})
	if err != nil {
		return nil, err
	}

	answer := &models.ChatAnswer{}
	if err := json.Unmarshal([]byte(extractJSON(resp.text())), answer); err != nil {
		return nil, fmt.Errorf("%w: unparseable answer: %v", common.ErrorDependency, err)
	}
	answer.Usage = models.ChatUsage{
		ModelID:      c.modelID,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
	return answer, nil
}
