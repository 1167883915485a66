package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRedact(t *testing.T) {
	req := require.New(t)
	redactor, err := NewRedactor([]string{"secret", "password"}, '*')
	req.NoError(err)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"No match", "hello world", "hello world"},
		{"Plain match", "this is secret stuff", "this is ****** stuff"},
		{"Case insensitive", "SECRET plans", "****** plans"},
		{"Leet speak", "my s3cr3t", "my ******"},
		{"Second word", "password here", "******** here"},
		{"Empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req.Equal(tt.want, redactor.Redact(tt.input))
		})
	}
}

func TestRedactorWithoutWords(t *testing.T) {
	req := require.New(t)
	redactor, err := NewRedactor(nil, '*')
	req.NoError(err)
	req.Equal("anything goes", redactor.Redact("anything goes"))
}
