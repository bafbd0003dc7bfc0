package e2e

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type testRoomSessionSuite struct {
	BaseHTTPSuite
}

func TestRoomSessionSuite(t *testing.T) {
	suite.Run(t, &testRoomSessionSuite{})
}

func (s *testRoomSessionSuite) TestFullConversationFlow() {
	var room, annID, boID string

	// --- STEP 1: ROOM CREATION ---
	s.Run("Step 1: Ann creates a room and gets her snapshot directly", func() {
		s.Step("Create room")
		status, payload := s.PostJSON("/api/create", `{"name":"Ann"}`)
		s.Require().Equal(http.StatusOK, status)

		room = payload["room"].(string)
		annID = payload["clientId"].(string)
		s.Require().Len(room, 5)
		s.Require().NotEmpty(annID)
		s.Require().EqualValues(1, payload["count"])
	})

	// --- STEP 2: ONBOARDING SEQUENCE ---
	s.Run("Step 2: Ann's first poll replays hello/created/presence in order", func() {
		s.Step("Drain onboarding queue")
		events := s.PollEvents(annID)
		s.Require().Len(events, 3)
		s.Require().Equal("hello", events[0]["type"])
		s.Require().Equal(annID, events[0]["clientId"])
		s.Require().Equal("created", events[1]["type"])
		s.Require().Equal(room, events[1]["room"])
		s.Require().Equal("presence", events[2]["type"])
	})

	// --- STEP 3: SECOND PARTICIPANT ---
	s.Run("Step 3: Bo joins and both sides converge on the same presence", func() {
		s.Step("Join room")
		status, payload := s.PostJSON("/api/join", fmt.Sprintf(`{"room":%q,"name":"Bo"}`, room))
		s.Require().Equal(http.StatusOK, status)
		boID = payload["clientId"].(string)
		s.Require().EqualValues(2, payload["count"])

		// Bo sees his onboarding plus the broadcast presence
		events := s.PollEvents(boID)
		s.Require().Len(events, 3)
		s.Require().Equal("hello", events[0]["type"])
		s.Require().Equal("joined", events[1]["type"])
		s.Require().Equal("presence", events[2]["type"])

		// Ann's queue carries the same membership snapshot
		events = s.PollEvents(annID)
		s.Require().Len(events, 1)
		s.Require().Equal("presence", events[0]["type"])
		s.Require().EqualValues(2, events[0]["count"])
	})

	// --- STEP 4: MESSAGE DELIVERY THROUGH A PARKED POLL ---
	s.Run("Step 4: a parked poll resolves as soon as a message lands", func() {
		s.Step("Send through parked poll")
		type result struct{ events []map[string]any }
		done := make(chan result, 1)
		go func() {
			done <- result{events: s.PollEvents(boID)}
		}()
		time.Sleep(50 * time.Millisecond)

		status, _ := s.PostJSON("/api/send", fmt.Sprintf(`{"clientId":%q,"text":"hi Bo"}`, annID))
		s.Require().Equal(http.StatusOK, status)

		select {
		case got := <-done:
			s.Require().Len(got.events, 1)
			s.Require().Equal("msg", got.events[0]["type"])
			s.Require().Equal("hi Bo", got.events[0]["text"])
			s.Require().Equal("Ann", got.events[0]["fromName"])
			s.Require().Equal(annID, got.events[0]["from"])
		case <-time.After(e2ePollTimeout):
			s.FailNow("parked poll did not resolve on broadcast")
		}
	})

	// --- STEP 5: DEPARTURE ---
	s.Run("Step 5: Bo leaves and Ann learns via presence", func() {
		s.Step("Leave room")
		status, payload := s.PostJSON("/api/leave", fmt.Sprintf(`{"clientId":%q}`, boID))
		s.Require().Equal(http.StatusOK, status)
		s.Require().Equal(true, payload["ok"])

		events := s.PollEvents(annID)
		s.Require().Len(events, 2)
		s.Require().Equal("msg", events[0]["type"]) // Ann's own message, still queued
		s.Require().Equal("presence", events[1]["type"])
		s.Require().EqualValues(1, events[1]["count"])

		// Bo's token is gone; his next poll fails
		status, _ = s.GetJSON("/api/poll?clientId=" + boID)
		s.Require().Equal(http.StatusBadRequest, status)
	})

	// --- STEP 6: ROOM DISPOSAL ---
	s.Run("Step 6: the room vanishes once the last member leaves", func() {
		s.Step("Dispose room")
		status, _ := s.PostJSON("/api/leave", fmt.Sprintf(`{"clientId":%q}`, annID))
		s.Require().Equal(http.StatusOK, status)

		status, _ = s.PostJSON("/api/join", fmt.Sprintf(`{"room":%q,"name":"Cy"}`, room))
		s.Require().Equal(http.StatusNotFound, status)
	})
}

func (s *testRoomSessionSuite) TestRequestedCodeLifecycle() {
	s.Run("A requested code is honored once and conflicts after", func() {
		s.Step("Requested code")
		status, payload := s.PostJSON("/api/create", `{"name":"Ann","room":"70707"}`)
		s.Require().Equal(http.StatusOK, status)
		s.Require().Equal("70707", payload["room"])
		annID := payload["clientId"].(string)

		status, _ = s.PostJSON("/api/create", `{"name":"Bo","room":"70707"}`)
		s.Require().Equal(http.StatusBadRequest, status)

		s.PostJSON("/api/leave", fmt.Sprintf(`{"clientId":%q}`, annID))
	})
}
