package dates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-03-05", "2024-03-05"},
		{" 2024-03-05 ", "2024-03-05"},
		{"2024-03-05T10:11:12Z", "2024-03-05"},
		{"2024-03-05T23:30:00+05:30", "2024-03-05"},
		{"2024-03-05 08:00:00", "2024-03-05"},
		{"05/03/2024", "2024-03-05"},
		{"5/3/2024", "2024-03-05"},
		{"03/25/2024", "2024-03-25"},
		{"29/02/2024", "2024-02-29"},
		{"05-03-2024", "2024-03-05"},
		{"5 Mar 2024", "2024-03-05"},
		{"March 5, 2024", "2024-03-05"},
		{"", ""},
		{"not a date", ""},
		{"31/31/2024", ""},
		{"2023-02-29", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(""))
	assert.True(t, Valid("01/01/2020"))
	assert.False(t, Valid("yesterday"))
}
