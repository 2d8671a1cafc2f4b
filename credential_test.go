package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPasswordLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"newline terminated", "s3cret\n", "s3cret"},
		{"crlf", "s3cret\r\n", "s3cret"},
		{"no trailing newline", "s3cret", "s3cret"},
		{"only first line", "first\nsecond\n", "first"},
		{"spaces kept", " pass word \n", " pass word "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPasswordLine(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadPasswordLine_Empty(t *testing.T) {
	_, err := readPasswordLine(strings.NewReader(""))
	require.Error(t, err)
	stage, _ := stageOf(err)
	assert.Equal(t, StageCredential, stage)
}

func TestPasswordPrompt(t *testing.T) {
	assert.Equal(t, "PostgreSQL Password: ", newPasswordReader("postgres", false).prompt)
	assert.Equal(t, "MySQL Password: ", newPasswordReader("mysql", false).prompt)
	assert.Equal(t, "oracle Password: ", newPasswordReader("oracle", false).prompt)
}
