package errors

import "fmt"

// Error taxonomy of the room core. The HTTP gateway maps these to status
// codes; everything else wraps them with %w and context.
var (
	ErrInvalidRoomCode         = fmt.Errorf("room code must be exactly 5 digits")
	ErrRoomCodeTaken           = fmt.Errorf("room code already in use")
	ErrRoomNotFound            = fmt.Errorf("room not found")
	ErrRoomAllocationExhausted = fmt.Errorf("no free room codes available")
	ErrClientNotFound          = fmt.Errorf("unknown client")
	ErrClientNotInRoom         = fmt.Errorf("client is not in a room")
	ErrEmptyName               = fmt.Errorf("name is empty")
	ErrEmptyMessage            = fmt.Errorf("message is empty")

	ErrAudioTooLarge          = fmt.Errorf("audio payload exceeds size limit")
	ErrUnsupportedAudio       = fmt.Errorf("unsupported audio format")
	ErrTranscriptionFailed    = fmt.Errorf("transcription failed")
	ErrSynthesizerUnavailable = fmt.Errorf("text-to-speech is not configured")
	ErrTextTooLong            = fmt.Errorf("text exceeds length limit")

	ErrWorkerPanic   = fmt.Errorf("worker panic")
	ErrEmptyWordList = fmt.Errorf("censored word list is empty")
)
