package client

// generateRequest is the request body for the Ollama /api/generate endpoint.
type generateRequest struct {
	Model  string        `json:"model"`
	Prompt string        `json:"prompt"`
	Stream bool          `json:"stream"`
	Format *schemaFormat `json:"format,omitempty"`
}

// schemaFormat constrains generation to a JSON object shape.
type schemaFormat struct {
	Type       string                    `json:"type"`
	Properties map[string]schemaProperty `json:"properties"`
	Required   []string                  `json:"required"`
}

type schemaProperty struct {
	Type string `json:"type"`
}

// secondsFormat is the fixed output contract: a JSON object with one
// required integer property.
func secondsFormat() *schemaFormat {
	return &schemaFormat{
		Type: "object",
		Properties: map[string]schemaProperty{
			"seconds": {Type: "integer"},
		},
		Required: []string{"seconds"},
	}
}

// generateResponse is the response from the Ollama /api/generate endpoint.
type generateResponse struct {
	Response string `json:"response"`
}

// tagsResponse is the response from the Ollama /api/tags endpoint.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// natsRequest is the aigoflow inference worker request envelope.
type natsRequest struct {
	ReqID   string                 `json:"req_id"`
	Input   string                 `json:"input"`
	Params  map[string]interface{} `json:"params"`
	Raw     bool                   `json:"raw,omitempty"`
	ReplyTo string                 `json:"reply_to,omitempty"`
}

// natsResponse is the aigoflow inference worker response envelope.
type natsResponse struct {
	ReqID        string `json:"req_id"`
	Text         string `json:"text"`
	TokensIn     int    `json:"tokens_in"`
	TokensOut    int    `json:"tokens_out"`
	FinishReason string `json:"finish_reason"`
	DurationMs   int64  `json:"duration_ms"`
	Error        string `json:"error,omitempty"`
}
