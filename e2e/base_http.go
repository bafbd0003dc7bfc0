package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/suite"

	"github.com/Sirco-web/ttls/httpapi"
	"github.com/Sirco-web/ttls/observability"
	"github.com/Sirco-web/ttls/runtime"
	"github.com/Sirco-web/ttls/speech"
)

const e2ePollTimeout = 300 * time.Millisecond

// BaseHTTPSuite owns the server under test. With E2E_SERVER_URL unset
// it assembles the full in-process stack, which keeps the suite runnable
// in plain CI while still exercising the real HTTP surface.
type BaseHTTPSuite struct {
	suite.Suite
	Config Config

	baseURL string
	client  *http.Client
	ts      *httptest.Server
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHTTPSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)

	s.client = &http.Client{Timeout: 10 * time.Second}
	if s.Config.ServerURL != "" {
		s.baseURL = s.Config.ServerURL
		return
	}

	log := slog.Default()
	monitor := observability.NewMonitor(log)
	orch := runtime.NewOrchestrator(log, runtime.NewRegistry(), monitor,
		e2ePollTimeout, time.Minute, 32, 2000)
	transcriber := speech.NewTranscriber(log, speech.NewConverter(""), "", "en", time.Second, 0)
	synthesizer := speech.NewSynthesizer(log, "", time.Second, 0)

	srv := httpapi.NewServer(log, orch, monitor, transcriber, synthesizer, "", 1<<20)
	s.ts = httptest.NewServer(srv.Handler())
	s.baseURL = s.ts.URL
}

func (s *BaseHTTPSuite) TearDownSuite() {
	if s.ts != nil {
		s.ts.Close()
	}
}

// Step prints a colorized header so scenario phases are visible in logs.
func (s *BaseHTTPSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// PostJSON posts a JSON body and decodes the JSON response.
func (s *BaseHTTPSuite) PostJSON(path, body string) (int, map[string]any) {
	res, err := s.client.Post(s.baseURL+path, "application/json", strings.NewReader(body))
	s.Require().NoError(err)
	defer res.Body.Close()
	return res.StatusCode, decodeBody(s, res.Body)
}

// GetJSON fetches a path and decodes the JSON response.
func (s *BaseHTTPSuite) GetJSON(path string) (int, map[string]any) {
	res, err := s.client.Get(s.baseURL + path)
	s.Require().NoError(err)
	defer res.Body.Close()
	return res.StatusCode, decodeBody(s, res.Body)
}

// PollEvents drains one poll round for the client and returns the
// events as loosely-typed maps.
func (s *BaseHTTPSuite) PollEvents(clientID string) []map[string]any {
	status, payload := s.GetJSON("/api/poll?clientId=" + clientID)
	s.Require().Equal(http.StatusOK, status)

	raw, _ := payload["events"].([]any)
	events := make([]map[string]any, 0, len(raw))
	for _, e := range raw {
		m, ok := e.(map[string]any)
		s.Require().True(ok)
		events = append(events, m)
	}
	return events
}

func decodeBody(s *BaseHTTPSuite, body io.Reader) map[string]any {
	var payload map[string]any
	s.Require().NoError(json.NewDecoder(body).Decode(&payload))
	return payload
}
