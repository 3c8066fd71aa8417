package entities

// Stage identifies one step of the speech-to-speech pipeline.
type Stage string

const (
	StageASR Stage = "asr"
	StageNMT Stage = "nmt"
	StageTTS Stage = "tts"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageASR, StageNMT, StageTTS}

// TranslationRequest is one unit of work for the pipeline.
type TranslationRequest struct {
	Audio      []float32 `json:"audio"`
	SampleRate int       `json:"sample_rate"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	// ReferenceVoice is passed through to the synthesizer for voice cloning.
	ReferenceVoice []float32 `json:"reference_audio,omitempty"`

	// Set by the streaming path so log records can be correlated.
	SessionID string `json:"-"`
	Sequence  int    `json:"-"`
}

// Segment is a timed piece of a transcription.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// TranscriptionResult is the output of one recognition call.
type TranscriptionResult struct {
	Text             string    `json:"text"`
	Language         string    `json:"language"`
	Confidence       float64   `json:"confidence"`
	Segments         []Segment `json:"segments"`
	ProcessingTimeMs float64   `json:"processing_time_ms"`
}

// TranslationResult is the output of one translation call. Language codes are in the
// translation engine's vocabulary. Confidence is nil when the engine gives no estimate.
type TranslationResult struct {
	Text       string         `json:"text"`
	SourceLang string         `json:"source_lang"`
	TargetLang string         `json:"target_lang"`
	Confidence *float64       `json:"confidence,omitempty"`
	Engine     string         `json:"engine"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// SynthesisResult is the output of one synthesis call.
type SynthesisResult struct {
	Audio      []float32 `json:"audio"`
	SampleRate int       `json:"sample_rate"`
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Speaker    string    `json:"speaker,omitempty"`
}

// TranslationResponse is the caller-visible result of one pipeline pass.
type TranslationResponse struct {
	RequestID     string             `json:"request_id"`
	Audio         []float32          `json:"audio"`
	SampleRate    int                `json:"sample_rate"`
	Transcription string             `json:"transcription"`
	Translation   string             `json:"translation"`
	SourceLang    string             `json:"source_lang"`
	TargetLang    string             `json:"target_lang"`
	LatencyMs     float64            `json:"latency_ms"`
	StageSumMs    float64            `json:"stage_sum_ms"`
	StageLatency  map[string]float64 `json:"stage_latencies"`
	Confidences   map[string]float64 `json:"confidences"`
}
