package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsProfanity(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected bool
	}{
		{
			name:     "clean text",
			text:     "Please pray for my mother's surgery next week",
			expected: false,
		},
		{
			name:     "blocked word",
			text:     "this is shit",
			expected: true,
		},
		{
			name:     "blocked word uppercase",
			text:     "This is SHIT",
			expected: true,
		},
		{
			name:     "blocked word surrounded by punctuation",
			text:     "what the (shit)!",
			expected: true,
		},
		{
			name:     "substring of clean word does not match",
			text:     "the Scunthorpe council meeting",
			expected: false,
		},
		{
			name:     "empty text",
			text:     "",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContainsProfanity(tt.text))
		})
	}
}
