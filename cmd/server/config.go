package main

import "time"

type Config struct {
	Host     string `env:"HOST,default=0.0.0.0"`
	Port     int    `env:"PORT,default=8080"`
	LogLevel string `env:"LOG_LEVEL,default=INFO"`

	PollTimeout       time.Duration `env:"POLL_TIMEOUT,default=30s"`
	ClientTimeout     time.Duration `env:"CLIENT_TIMEOUT,default=60s"`
	ReapInterval      time.Duration `env:"REAP_INTERVAL,default=15s"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=5s"`

	MaxNameLength    int `env:"MAX_NAME_LENGTH,default=32"`
	MaxMessageLength int `env:"MAX_MESSAGE_LENGTH,default=2000"`

	// Speech collaborators; both are optional and the related endpoints
	// answer 503 when left unset.
	SttScript     string        `env:"STT_SCRIPT"`
	SttLanguage   string        `env:"STT_LANGUAGE,default=en"`
	SttTimeout    time.Duration `env:"STT_TIMEOUT,default=60s"`
	FfmpegPath    string        `env:"FFMPEG_PATH,default=ffmpeg"`
	MaxAudioBytes int64         `env:"MAX_AUDIO_BYTES,default=10485760"`

	TtsCommand string        `env:"TTS_COMMAND"`
	TtsTimeout time.Duration `env:"TTS_TIMEOUT,default=30s"`
	TtsMaxText int           `env:"TTS_MAX_TEXT,default=500"`

	// Moderation is off unless a wordlist file is provided.
	CensoredWordsFile         string `env:"CENSORED_WORDS_FILE"`
	ModerationCharReplacement rune   `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	// StaticDir overrides the embedded web client.
	StaticDir string `env:"STATIC_DIR"`
}
