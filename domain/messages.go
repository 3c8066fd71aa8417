package domain

import "github.com/onewhat/server/domain/entities"

// Client and server message types on the streaming socket
const (
	MessageTypeSessionConfig  = "session_config"
	MessageTypeEndOfStream    = "end_of_stream"
	MessageTypeSessionStarted = "session_started"
	MessageTypeTranslation    = "translation"
	MessageTypeError          = "error"
	MessageTypeSessionEnded   = "session_ended"
)

// Error codes carried by ErrorMessage
const (
	ErrorCodeSessionProtocol = "session_protocol"
	ErrorCodeStage           = "stage_failed"
	ErrorCodeUninitialized   = "pipeline_uninitialized"
	ErrorCodeSource          = "source_failed"
	ErrorCodeInternal        = "internal"
)

// SessionConfigMessage must be the first message a client sends
type SessionConfigMessage struct {
	Type       string `json:"type"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	SampleRate int    `json:"sample_rate"`
}

// ControlMessage is any text frame after the session config
type ControlMessage struct {
	Type string `json:"type"`
}

// SessionStartedMessage acknowledges a valid session config
type SessionStartedMessage struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	SampleRate int    `json:"sample_rate"`
	ChunkMs    int64  `json:"chunk_ms"`
}

// TranslationMessage carries one chunk's response
type TranslationMessage struct {
	Type     string `json:"type"`
	Sequence int    `json:"sequence"`
	Final    bool   `json:"final"`
	entities.TranslationResponse
}

// ErrorMessage reports a chunk-level or session-level failure
type ErrorMessage struct {
	Type      string `json:"type"`
	ErrorCode string `json:"error_code"`
	Stage     string `json:"stage,omitempty"`
	Sequence  *int   `json:"sequence,omitempty"`
	Message   string `json:"message"`
}

// SessionEndedMessage is the last message before the server closes the socket
type SessionEndedMessage struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id"`
	Chunks       int    `json:"chunks"`
	FailedChunks int    `json:"failed_chunks"`
	Status       string `json:"status"`
}
