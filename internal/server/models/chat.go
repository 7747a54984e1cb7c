package models

import "time"

// ChatAnswer is the success payload of one chat job.
type ChatAnswer struct {
	Answer      string    `json:"answer"`
	FollowUps   []string  `json:"follow_up_suggestions"`
	Disclaimers []string  `json:"disclaimers"`
	Usage       ChatUsage `json:"usage"`
}

// ChatUsage carries model-invocation metadata for the answer.
type ChatUsage struct {
	ModelID      string `json:"model_id"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// ChatFailure is the failure payload of one chat job.
type ChatFailure struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
}

// ChatArtifact is the single-consumption object written to transient storage
// when a chat job finishes: it is read once by the polling client and then
// deleted. Exactly one of Response and Failure is set.
type ChatArtifact struct {
	JobID     string       `json:"job_id"`
	Response  *ChatAnswer  `json:"response,omitempty"`
	Failure   *ChatFailure `json:"failure,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
