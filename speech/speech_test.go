package speech

import (
	"context"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Sirco-web/ttls/errors"
)

// wavHeader builds a minimal valid RIFF/WAVE header for sniffing tests.
func wavHeader() []byte {
	buf := make([]byte, 0, 44)
	buf = append(buf, []byte("RIFF")...)
	buf = binary.LittleEndian.AppendUint32(buf, 36)
	buf = append(buf, []byte("WAVE")...)
	buf = append(buf, []byte("fmt ")...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = append(buf, make([]byte, 16)...)
	buf = append(buf, []byte("data")...)
	buf = binary.LittleEndian.AppendUint32(buf, 0)
	return buf
}

func TestSniffAudio_AcceptsRecorderFormats(t *testing.T) {
	req := require.New(t)

	// Given the magic bytes of the formats a browser recorder emits
	req.NoError(sniffAudio(wavHeader()))
	req.NoError(sniffAudio([]byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00\x00\x00")))
	req.NoError(sniffAudio([]byte{0x1a, 0x45, 0xdf, 0xa3, 0x01, 0x00, 0x00, 0x00}))
}

func TestSniffAudio_RejectsNonAudio(t *testing.T) {
	req := require.New(t)

	err := sniffAudio([]byte("<!DOCTYPE html><html></html>"))

	req.ErrorIs(err, apperrors.ErrUnsupportedAudio)
}

func TestTranscriber_RejectsOversizeBlob(t *testing.T) {
	req := require.New(t)
	tr := NewTranscriber(slog.Default(), NewConverter(""), "/usr/bin/true", "en", time.Second, 8)

	_, err := tr.Transcribe(context.Background(), make([]byte, 9), "")

	req.ErrorIs(err, apperrors.ErrAudioTooLarge)
}

func TestTranscriber_FailsWhenUnconfigured(t *testing.T) {
	req := require.New(t)
	tr := NewTranscriber(slog.Default(), NewConverter(""), "", "en", time.Second, 0)

	req.False(tr.Available())
	_, err := tr.Transcribe(context.Background(), wavHeader(), "")
	req.ErrorIs(err, apperrors.ErrTranscriptionFailed)
}

// fakeScript writes an executable shell script and returns its path.
func fakeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable")
	}
	path := filepath.Join(t.TempDir(), "stt.sh")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755)
	require.NoError(t, err)
	return path
}

func TestTranscriber_ParsesScriptOutput(t *testing.T) {
	req := require.New(t)

	// Given a helper that answers with a transcript
	script := fakeScript(t, `echo '{"text": "  hello there  "}'`)
	tr := NewTranscriber(slog.Default(), NewConverter(""), script, "en", time.Second, 0)

	text, err := tr.runScript(context.Background(), "/tmp/nonexistent.wav", "en")

	req.NoError(err)
	req.Equal("hello there", text)
}

func TestTranscriber_SurfacesScriptError(t *testing.T) {
	req := require.New(t)

	// Given a helper that reports a failure in its JSON contract
	script := fakeScript(t, `echo '{"error": "model not installed"}'; exit 1`)
	tr := NewTranscriber(slog.Default(), NewConverter(""), script, "en", time.Second, 0)

	_, err := tr.runScript(context.Background(), "/tmp/nonexistent.wav", "en")

	req.ErrorIs(err, apperrors.ErrTranscriptionFailed)
	req.ErrorContains(err, "model not installed")
}

func TestSynthesizer_UnavailableWhenUnconfigured(t *testing.T) {
	req := require.New(t)
	s := NewSynthesizer(slog.Default(), "", time.Second, 0)

	req.False(s.Available())
	_, err := s.Synthesize(context.Background(), "hello", "")
	req.ErrorIs(err, apperrors.ErrSynthesizerUnavailable)
}

func TestSynthesizer_BoundsTextLength(t *testing.T) {
	req := require.New(t)
	s := NewSynthesizer(slog.Default(), "/usr/bin/true", time.Second, 5)

	_, err := s.Synthesize(context.Background(), "much too long", "en")

	req.ErrorIs(err, apperrors.ErrTextTooLong)
}

func TestSynthesizer_RejectsEmptyText(t *testing.T) {
	req := require.New(t)
	s := NewSynthesizer(slog.Default(), "/usr/bin/true", time.Second, 0)

	_, err := s.Synthesize(context.Background(), "   ", "en")

	req.ErrorIs(err, apperrors.ErrEmptyMessage)
}

func TestDetectLanguage_FallsBackToEnglish(t *testing.T) {
	req := require.New(t)

	// Short or ambiguous strings must not produce a wild guess
	req.Equal("en", detectLanguage("ok"))
}

func TestDetectLanguage_RecognizesFrench(t *testing.T) {
	req := require.New(t)

	code := detectLanguage("Bonjour, je voudrais savoir comment se porte le projet aujourd'hui et si tout le monde est disponible pour la réunion.")

	req.Equal("fr", code)
}
