package speech

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"github.com/Sirco-web/ttls/errors"
)

// Synthesizer shells out to an external text-to-speech binary. The
// binary receives the language code and the text as arguments and
// writes the audio stream to stdout.
type Synthesizer struct {
	log      *slog.Logger
	binPath  string
	timeout  time.Duration
	maxRunes int
}

func NewSynthesizer(log *slog.Logger, binPath string, timeout time.Duration, maxRunes int) *Synthesizer {
	return &Synthesizer{log: log, binPath: binPath, timeout: timeout, maxRunes: maxRunes}
}

func (s *Synthesizer) Available() bool {
	return s.binPath != ""
}

// Synthesize renders text to audio. When the caller supplies no
// language the text itself decides via detection, falling back to
// English for short or ambiguous inputs.
func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if !s.Available() {
		return nil, errors.ErrSynthesizerUnavailable
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.ErrEmptyMessage
	}
	if s.maxRunes > 0 && utf8.RuneCountInString(text) > s.maxRunes {
		return nil, errors.ErrTextTooLong
	}
	if language == "" {
		language = detectLanguage(text)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.binPath, "--lang", language, "--text", text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		s.log.Warn("synthesizer failed", "lang", language, "err", detail)
		return nil, fmt.Errorf("%w: %s", errors.ErrSynthesizerUnavailable, detail)
	}
	return stdout.Bytes(), nil
}

// detectLanguage maps the detected script to an ISO 639-1 code. The
// detector needs a sentence or two to be reliable, so low-confidence
// results fall back to English rather than guessing.
func detectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "en"
	}
	code := whatlanggo.LangToStringShort(info.Lang)
	if code == "" {
		return "en"
	}
	return code
}
