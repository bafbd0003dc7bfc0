// Package speech wraps the external audio collaborators: ffmpeg for
// format conversion, a whisper helper script for transcription, and an
// optional synthesizer binary for playback. Every call is an isolated,
// timeout-bounded subprocess; the room core never depends on their
// success.
package speech

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Converter turns a compressed audio blob into the 16 kHz mono WAV the
// transcriber expects, by piping it through ffmpeg.
type Converter struct {
	binPath string
}

func NewConverter(binPath string) *Converter {
	if binPath == "" {
		binPath = "ffmpeg"
	}
	return &Converter{binPath: binPath}
}

// ToWAV reads the blob on stdin and writes a 16 kHz mono PCM WAV to
// stdout. ffmpeg's stderr is folded into the error so a failed
// conversion is diagnosable from the log line alone.
func (c *Converter) ToWAV(ctx context.Context, blob []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binPath,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-ar", "16000", "-ac", "1",
		"-f", "wav", "pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(blob)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, fmt.Errorf("ffmpeg conversion failed: %s", detail)
	}
	return stdout.Bytes(), nil
}
