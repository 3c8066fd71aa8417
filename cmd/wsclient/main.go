package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/onewhat/server/domain"
	"github.com/onewhat/server/internal/audio"
	"github.com/onewhat/server/internal/logging"
)

// Streams a raw little-endian float32 PCM file to /ws/translate and prints
// every server message. Synthesized audio is written next to -out.
func main() {
	addr := flag.String("addr", "localhost:8080", "Server host:port")
	token := flag.String("token", "", "Bearer token (see cmd/tokengen)")
	file := flag.String("file", "", "Raw float32 LE PCM file to stream")
	rate := flag.Int("rate", 16000, "Sample rate of the file")
	source := flag.String("source", "", "Source language (empty to detect)")
	target := flag.String("target", "es", "Target language")
	fragment := flag.Int("fragment", 4096, "Bytes per binary frame")
	pace := flag.Duration("pace", 100*time.Millisecond, "Delay between frames")
	out := flag.String("out", "translations", "Directory for synthesized audio")
	flag.Parse()

	logger, err := logging.New("local", "info")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *file == "" {
		logger.Fatal("--file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatal("Failed to read audio file", zap.Error(err))
	}
	if err := os.MkdirAll(*out, 0o755); err != nil {
		logger.Fatal("Failed to create output directory", zap.Error(err))
	}

	u := url.URL{Scheme: "ws", Host: *addr, Path: "/ws/translate"}
	headers := http.Header{}
	if *token != "" {
		headers.Add("Authorization", "Bearer "+*token)
	}

	logger.Info("Connecting", zap.String("url", u.String()))
	c, resp, err := websocket.DefaultDialer.Dial(u.String(), headers)
	if err != nil {
		if resp != nil {
			logger.Fatal("Dial failed", zap.Int("status", resp.StatusCode), zap.Error(err))
		}
		logger.Fatal("Dial failed", zap.Error(err))
	}
	defer c.Close()

	done := make(chan struct{})
	go handleIncomingMessages(c, *out, logger, done)

	config, _ := json.Marshal(domain.SessionConfigMessage{
		Type:       domain.MessageTypeSessionConfig,
		SourceLang: *source,
		TargetLang: *target,
		SampleRate: *rate,
	})
	if err := c.WriteMessage(websocket.TextMessage, config); err != nil {
		logger.Fatal("Failed to send session config", zap.Error(err))
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	logger.Info("Streaming audio", zap.Int("bytes", len(data)), zap.Int("fragment", *fragment))
	for start := 0; start < len(data); start += *fragment {
		end := min(start+*fragment, len(data))
		if err := c.WriteMessage(websocket.BinaryMessage, data[start:end]); err != nil {
			logger.Error("Failed to send audio", zap.Error(err))
			return
		}
		select {
		case <-time.After(*pace):
		case <-interrupt:
			closeGracefully(c, done, logger)
			return
		case <-done:
			return
		}
	}

	end, _ := json.Marshal(domain.ControlMessage{Type: domain.MessageTypeEndOfStream})
	if err := c.WriteMessage(websocket.TextMessage, end); err != nil {
		logger.Error("Failed to send end_of_stream", zap.Error(err))
		return
	}

	select {
	case <-done:
	case <-interrupt:
		closeGracefully(c, done, logger)
	}
}

func closeGracefully(c *websocket.Conn, done <-chan struct{}, logger *zap.Logger) {
	err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		logger.Error("Failed to write close", zap.Error(err))
		return
	}
	select {
	case <-done:
	case <-time.After(time.Second):
	}
}

func handleIncomingMessages(c *websocket.Conn, outDir string, logger *zap.Logger, done chan<- struct{}) {
	defer close(done)

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("Read failed", zap.Error(err))
			}
			return
		}

		var envelope domain.ControlMessage
		if err := json.Unmarshal(message, &envelope); err != nil {
			logger.Warn("Unparsable message", zap.Error(err))
			continue
		}

		switch envelope.Type {
		case domain.MessageTypeTranslation:
			var msg domain.TranslationMessage
			if err := json.Unmarshal(message, &msg); err != nil {
				logger.Warn("Bad translation message", zap.Error(err))
				continue
			}
			path := filepath.Join(outDir, fmt.Sprintf("%04d.f32", msg.Sequence))
			if err := os.WriteFile(path, audio.EncodeFloat32LE(msg.Audio), 0o644); err != nil {
				logger.Warn("Failed to write audio", zap.Error(err))
			}
			logger.Info("Translation",
				zap.Int("sequence", msg.Sequence),
				zap.Bool("final", msg.Final),
				zap.String("transcription", msg.Transcription),
				zap.String("translation", msg.Translation),
				zap.Float64("latencyMs", msg.LatencyMs),
				zap.String("audio", path))

		case domain.MessageTypeError:
			var msg domain.ErrorMessage
			_ = json.Unmarshal(message, &msg)
			logger.Warn("Server error",
				zap.String("code", msg.ErrorCode),
				zap.String("stage", msg.Stage),
				zap.String("message", msg.Message))

		case domain.MessageTypeSessionEnded:
			var msg domain.SessionEndedMessage
			_ = json.Unmarshal(message, &msg)
			logger.Info("Session ended",
				zap.String("sessionID", msg.SessionID),
				zap.String("status", msg.Status),
				zap.Int("chunks", msg.Chunks),
				zap.Int("failedChunks", msg.FailedChunks))

		default:
			logger.Info("Message", zap.ByteString("payload", message))
		}
	}
}
