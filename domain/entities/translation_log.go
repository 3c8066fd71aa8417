package entities

import "time"

// TranslationLog statuses
const (
	TranslationStatusSucceeded = "succeeded"
	TranslationStatusFailed    = "failed"
)

// TranslationLog is the audit record of one pipeline pass
type TranslationLog struct {
	ID            uint     `json:"id" gorm:"primaryKey"`
	RequestID     string   `json:"request_id" gorm:"size:36;uniqueIndex"`
	SessionID     string   `json:"session_id,omitempty" gorm:"size:36;index"`
	Sequence      int      `json:"sequence"`
	SourceLang    string   `json:"source_lang" gorm:"size:16"`
	TargetLang    string   `json:"target_lang" gorm:"size:16"`
	Status        string   `json:"status" gorm:"size:16;index"`
	FailedStage   string   `json:"failed_stage,omitempty" gorm:"size:8"`
	Error         string   `json:"error,omitempty" gorm:"type:text"`
	Transcription string   `json:"transcription" gorm:"type:text"`
	Translation   string   `json:"translation" gorm:"type:text"`
	LatencyMs     float64  `json:"latency_ms"`
	ASRMs         float64  `json:"asr_ms"`
	NMTMs         float64  `json:"nmt_ms"`
	TTSMs         float64  `json:"tts_ms"`
	ASRConfidence *float64 `json:"asr_confidence,omitempty"`
	NMTConfidence *float64 `json:"nmt_confidence,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// NewTranslationLog starts a log record for a request
func NewTranslationLog(requestID string, req TranslationRequest) *TranslationLog {
	return &TranslationLog{
		RequestID:  requestID,
		SessionID:  req.SessionID,
		Sequence:   req.Sequence,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		CreatedAt:  time.Now().UTC(),
	}
}

// Succeed fills the record from a completed response
func (l *TranslationLog) Succeed(resp TranslationResponse) {
	l.Status = TranslationStatusSucceeded
	l.SourceLang = resp.SourceLang
	l.TargetLang = resp.TargetLang
	l.Transcription = resp.Transcription
	l.Translation = resp.Translation
	l.LatencyMs = resp.LatencyMs
	l.setStages(resp.StageLatency, resp.Confidences)
}

// Fail records the failing stage and whatever stage timings completed before it
func (l *TranslationLog) Fail(stage Stage, cause error, latencyMs float64, stages, confidences map[string]float64) {
	l.Status = TranslationStatusFailed
	l.FailedStage = string(stage)
	if cause != nil {
		l.Error = cause.Error()
	}
	l.LatencyMs = latencyMs
	l.setStages(stages, confidences)
}

func (l *TranslationLog) setStages(stages, confidences map[string]float64) {
	l.ASRMs = stages[string(StageASR)]
	l.NMTMs = stages[string(StageNMT)]
	l.TTSMs = stages[string(StageTTS)]
	if c, ok := confidences[string(StageASR)]; ok {
		l.ASRConfidence = &c
	}
	if c, ok := confidences[string(StageNMT)]; ok {
		l.NMTConfidence = &c
	}
}
