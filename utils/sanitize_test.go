package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParameterize(t *testing.T) {
	tests := []struct {
		in, sep, want string
	}{
		{"raft", "_", "raft"},
		{"My Raft App", "_", "my_raft_app"},
		{"Café Übersicht", "-", "cafe-ubersicht"},
		{"  --weird!!name--  ", "_", "weird_name"},
		{"", "_", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parameterize(tt.in, tt.sep), tt.in)
	}
}

func TestFormatProjectName(t *testing.T) {
	assert.Equal(t, "raft", FormatProjectName("Raft"))
	assert.Equal(t, "app_42_things", FormatProjectName("42 things"))
	assert.Equal(t, "app", FormatProjectName("!!!"))
}

func TestIsValidProjectName(t *testing.T) {
	assert.True(t, IsValidProjectName("raft-app_2"))
	assert.False(t, IsValidProjectName("-raft"))
	assert.False(t, IsValidProjectName("raft app"))
	assert.False(t, IsValidProjectName("2fast"))
	assert.False(t, IsValidProjectName(""))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcd...", TruncateString("abcdefghij", 7))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}
