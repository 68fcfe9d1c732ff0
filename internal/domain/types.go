package domain

import "time"

// Document represents a single text file loaded from the corpus directory.
type Document struct {
	ID       string
	Path     string
	Content  string
	Metadata map[string]any
}

// Chunk is a bounded span of document text used as the retrieval unit.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Text       string
	Index      int
	Metadata   map[string]any
}

// Role tags the sender of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single conversation turn. Immutable after creation.
type Message struct {
	Role      Role
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string, metadata map[string]any) Message {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Message{Role: role, Content: content, Metadata: metadata, CreatedAt: time.Now()}
}

// Source is a retrieved passage attributed in an answer.
type Source struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// QueryResult is the structured outcome of one query or chat call.
// ProcessingTime is in seconds. Error is empty on success.
type QueryResult struct {
	Question       string   `json:"question"`
	Answer         string   `json:"answer"`
	Sources        []Source `json:"sources"`
	ProcessingTime float64  `json:"processing_time"`
	Error          string   `json:"error,omitempty"`
}

// Failed reports whether the result carries an error indicator.
func (r *QueryResult) Failed() bool { return r.Error != "" }

// ResponseMode selects how retrieved passages are assembled into an answer.
type ResponseMode string

const (
	// ResponseCompact stuffs all retrieved passages into a single prompt.
	ResponseCompact ResponseMode = "compact"
	// ResponseRefine feeds passages one at a time, refining the answer.
	ResponseRefine ResponseMode = "refine"
)

// ParseResponseMode validates a response mode string. Empty selects compact.
func ParseResponseMode(s string) (ResponseMode, bool) {
	switch ResponseMode(s) {
	case ResponseCompact, "":
		return ResponseCompact, true
	case ResponseRefine:
		return ResponseRefine, true
	}
	return "", false
}

// Names of the artifacts a valid index cache directory must contain.
const (
	DocStoreFile   = "docstore.json"
	IndexStoreFile = "index_store.json"
)
