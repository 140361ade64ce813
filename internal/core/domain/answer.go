package domain

const (
	// AnswerNotEnoughInfo is the user-facing "not enough information" answer.
	AnswerNotEnoughInfo = "Không đủ thông tin"
	AnswerError         = "Error"

	NoRelevantContext = "No relevant information found."
	NoWebResults      = "Không tìm thấy thông tin liên quan trên web."

	// Placeholders for blank fields of a formatted web result.
	WebUntitled  = "Không có tiêu đề"
	WebNoSnippet = "Không có nội dung"
	WebNoURL     = "#"
)

// FailureKind tags why an answer is degraded. Empty means a normal answer.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureNoContext        FailureKind = "no_context"
	FailureInvalidInput     FailureKind = "invalid_input"
	FailureNotConfigured    FailureKind = "not_configured"
	FailureUpstream         FailureKind = "upstream_unavailable"
	FailureMalformedOutput  FailureKind = "malformed_output"
	FailureNoAnswer         FailureKind = "no_answer_extracted"
	FailureIndexUnavailable FailureKind = "index_unavailable"
	FailureInternal         FailureKind = "internal"
)

type AnswerResult struct {
	Answer    string      `json:"answer"`
	Reasoning string      `json:"reasoning"`
	Failure   FailureKind `json:"failure,omitempty"`
}

type Contexts struct {
	Local []string `json:"local"`
	Web   []string `json:"web"`
}

// Response is the shape returned to every caller of the pipeline.
type Response struct {
	Answer        string      `json:"answer"`
	Reasoning     string      `json:"reasoning"`
	Contexts      Contexts    `json:"contexts"`
	HasWebResults bool        `json:"has_web_results"`
	Failure       FailureKind `json:"failure,omitempty"`
}

// ErrorResponse builds the uniform degraded response with empty context buckets.
func ErrorResponse(kind FailureKind, message string) *Response {
	return &Response{
		Answer:    AnswerError,
		Reasoning: "An error occurred: " + message,
		Contexts:  Contexts{Local: []string{}, Web: []string{}},
		Failure:   kind,
	}
}

type AskRequest struct {
	Question     string `json:"question"`
	UseWebSearch bool   `json:"use_web_search"`
	TopK         int    `json:"top_k"`
}
