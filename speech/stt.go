package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Sirco-web/ttls/errors"
)

// sttResult mirrors the helper script's stdout contract: exactly one of
// the two fields is set.
type sttResult struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Transcriber runs the whisper helper script over a converted WAV file.
type Transcriber struct {
	log        *slog.Logger
	converter  *Converter
	scriptPath string
	language   string
	timeout    time.Duration
	maxBytes   int
}

func NewTranscriber(log *slog.Logger, converter *Converter, scriptPath, language string, timeout time.Duration, maxBytes int) *Transcriber {
	return &Transcriber{
		log:        log,
		converter:  converter,
		scriptPath: scriptPath,
		language:   language,
		timeout:    timeout,
		maxBytes:   maxBytes,
	}
}

// Available reports whether a helper script has been configured.
func (t *Transcriber) Available() bool {
	return t.scriptPath != ""
}

// Transcribe converts the blob to WAV, hands it to the helper script
// and returns the transcript. The blob must be one of the browser
// recording formats (webm/ogg/wav) and under the size ceiling. An empty
// language falls back to the configured default.
func (t *Transcriber) Transcribe(ctx context.Context, blob []byte, language string) (string, error) {
	if !t.Available() {
		return "", fmt.Errorf("%w: no script configured", errors.ErrTranscriptionFailed)
	}
	if language == "" {
		language = t.language
	}
	if t.maxBytes > 0 && len(blob) > t.maxBytes {
		return "", errors.ErrAudioTooLarge
	}
	if err := sniffAudio(blob); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	wav, err := t.converter.ToWAV(ctx, blob)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTranscriptionFailed, err)
	}

	tmp, err := os.CreateTemp("", "voice-*.wav")
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTranscriptionFailed, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: %v", errors.ErrTranscriptionFailed, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTranscriptionFailed, err)
	}

	return t.runScript(ctx, tmp.Name(), language)
}

// runScript invokes the helper with the wav path as its only argument
// and the language hint in the environment, then decodes the JSON line
// it prints on stdout.
func (t *Transcriber) runScript(ctx context.Context, wavPath, language string) (string, error) {
	cmd := exec.CommandContext(ctx, t.scriptPath, wavPath)
	cmd.Env = append(os.Environ(), "WHISPER_LANG="+language)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var result sttResult
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &result); err != nil {
		if runErr != nil {
			t.log.Warn("transcription script failed", "err", runErr, "stderr", strings.TrimSpace(stderr.String()))
			return "", fmt.Errorf("%w: %v", errors.ErrTranscriptionFailed, runErr)
		}
		return "", fmt.Errorf("%w: unreadable script output", errors.ErrTranscriptionFailed)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%w: %s", errors.ErrTranscriptionFailed, result.Error)
	}
	return strings.TrimSpace(result.Text), nil
}

// sniffAudio accepts the formats a browser recorder produces.
func sniffAudio(blob []byte) error {
	kind := mimetype.Detect(blob)
	switch {
	case kind.Is("audio/webm"), kind.Is("video/webm"),
		kind.Is("audio/ogg"), kind.Is("audio/wav"),
		kind.Is("audio/mpeg"), kind.Is("audio/mp4"), kind.Is("video/mp4"):
		return nil
	default:
		return fmt.Errorf("%w: %s", errors.ErrUnsupportedAudio, kind.String())
	}
}
