package websocket

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/domain/entities"
	"github.com/onewhat/server/usecase"
)

//go:embed session_config.schema.json
var sessionConfigSchemaJSON string

// MessageValidator validates client messages against the embedded schema
type MessageValidator struct {
	compileOnce sync.Once
	schema      *jsonschema.Schema
	compileErr  error
}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ParseSessionConfig validates the first client message. Every failure is a
// *domain.SessionProtocolError.
func (v *MessageValidator) ParseSessionConfig(raw []byte) (*domain.SessionConfigMessage, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, &domain.SessionProtocolError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	schema, err := v.loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load session config schema: %w", err)
	}

	if err := schema.Validate(value); err != nil {
		return nil, protocolError(err)
	}

	var msg domain.SessionConfigMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &domain.SessionProtocolError{Reason: err.Error()}
	}
	msg.SourceLang = strings.TrimSpace(msg.SourceLang)
	msg.TargetLang = strings.TrimSpace(msg.TargetLang)
	return &msg, nil
}

// ParseControl decodes a text frame received after the session config
func (v *MessageValidator) ParseControl(raw []byte) (*domain.ControlMessage, error) {
	var msg domain.ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &domain.SessionProtocolError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}
	switch msg.Type {
	case domain.MessageTypeEndOfStream:
		return &msg, nil
	case "":
		return nil, &domain.SessionProtocolError{Field: "type", Reason: "is required"}
	default:
		return nil, &domain.SessionProtocolError{Field: "type", Reason: fmt.Sprintf("unexpected message type %q", msg.Type)}
	}
}

func (v *MessageValidator) loadSchema() (*jsonschema.Schema, error) {
	v.compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		if err := compiler.AddResource("session_config.schema.json", strings.NewReader(sessionConfigSchemaJSON)); err != nil {
			v.compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("session_config.schema.json")
		if err != nil {
			v.compileErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		v.schema = schema
	})

	if v.compileErr != nil {
		return nil, v.compileErr
	}
	return v.schema, nil
}

// protocolError reduces a schema failure to its innermost cause
func protocolError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &domain.SessionProtocolError{Reason: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &domain.SessionProtocolError{
		Field:  strings.TrimPrefix(ve.InstanceLocation, "/"),
		Reason: ve.Message,
	}
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("message is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("message contains trailing content")
	}
	return value, nil
}

// CreateErrorMessage maps an error onto the wire error message. sequence is
// nil for session-level failures.
func CreateErrorMessage(err error, sequence *int) *domain.ErrorMessage {
	msg := &domain.ErrorMessage{
		Type:      domain.MessageTypeError,
		ErrorCode: domain.ErrorCodeInternal,
		Sequence:  sequence,
		Message:   err.Error(),
	}

	var protoErr *domain.SessionProtocolError
	var uninitErr *domain.UninitializedPipelineError
	switch {
	case errors.As(err, &protoErr):
		msg.ErrorCode = domain.ErrorCodeSessionProtocol
	case errors.As(err, &uninitErr):
		msg.ErrorCode = domain.ErrorCodeUninitialized
	case errors.Is(err, domain.ErrInvalidRequest):
		msg.ErrorCode = domain.ErrorCodeSessionProtocol
	}
	if stage, ok := domain.StageOf(err); ok {
		msg.Stage = string(stage)
		if msg.ErrorCode == domain.ErrorCodeInternal {
			msg.ErrorCode = domain.ErrorCodeStage
		}
	}
	return msg
}

// CreateResultMessage converts one streaming result into its wire message
func CreateResultMessage(result usecase.StreamResult) any {
	if result.Fatal {
		msg := CreateErrorMessage(result.Err, nil)
		if msg.ErrorCode == domain.ErrorCodeInternal {
			msg.ErrorCode = domain.ErrorCodeSource
		}
		return msg
	}
	if result.Err != nil {
		seq := result.Sequence
		return CreateErrorMessage(result.Err, &seq)
	}
	return &domain.TranslationMessage{
		Type:                domain.MessageTypeTranslation,
		Sequence:            result.Sequence,
		Final:               result.Final,
		TranslationResponse: result.Response,
	}
}

// CreateSessionEndedMessage summarizes a finished session
func CreateSessionEndedMessage(session *entities.StreamingSession) *domain.SessionEndedMessage {
	return &domain.SessionEndedMessage{
		Type:         domain.MessageTypeSessionEnded,
		SessionID:    session.ID,
		Chunks:       session.Chunks,
		FailedChunks: session.FailedChunks,
		Status:       string(session.Status),
	}
}
