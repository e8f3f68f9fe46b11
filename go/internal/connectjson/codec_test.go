package connectjson

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	ID      string     `json:"id"`
	Count   int        `json:"count"`
	StartAt *time.Time `json:"startAt,omitempty"`
}

func TestCodecRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := sample{ID: "abc", Count: 3, StartAt: &at}

	data, err := Codec{}.Marshal(&in)
	require.NoError(t, err)

	var out sample
	require.NoError(t, Codec{}.Unmarshal(data, &out))
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Count, out.Count)
	require.NotNil(t, out.StartAt)
	assert.True(t, at.Equal(*out.StartAt))
}

func TestCodecUnmarshal(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "empty body is an empty message", data: ""},
		{name: "whitespace body", data: "  \n"},
		{name: "known fields", data: `{"id":"x","count":1}`},
		{name: "unknown field", data: `{"id":"x","bogus":true}`, wantErr: true},
		{name: "malformed", data: `{"id":`, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out sample
			err := Codec{}.Unmarshal([]byte(tc.data), &out)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCodecName(t *testing.T) {
	assert.Equal(t, "json", Codec{}.Name())
}
