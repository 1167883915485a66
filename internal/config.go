package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,default=INFO"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`

	// VanishAfter is the fixed delay applied to every message sent
	// with the vanish flag enabled.
	VanishAfter     time.Duration `env:"VANISH_AFTER,default=15s"`
	DeleteRetryMax  int           `env:"DELETE_RETRY_MAX,default=3"`
	DeleteRetryBase time.Duration `env:"DELETE_RETRY_BASE,default=250ms"`

	SinkTimeout       time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval   time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	TelemetryInterval time.Duration `env:"TELEMETRY_INTERVAL,default=30s"`

	SearchLimit int `env:"SEARCH_LIMIT,default=20"`

	// RedactedWords is a comma-separated list of words blanked out of
	// outgoing messages before they are persisted.
	RedactedWords   string `env:"REDACTED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// RedactedWordList splits and trims the configured word list.
func (c Config) RedactedWordList() []string {
	if strings.TrimSpace(c.RedactedWords) == "" {
		return nil
	}
	var words []string
	for _, w := range strings.Split(c.RedactedWords, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
