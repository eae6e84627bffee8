package google

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/fittoken/internal/config"
)

func TestFilenameStem(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name       string
		info       *UserInfo
		wantStem   string
		wantSource StemSource
	}{
		{
			name:       "email local part",
			info:       &UserInfo{Email: "Jane.Doe@example.com"},
			wantStem:   "jane_doe",
			wantSource: StemFromEmail,
		},
		{
			name:       "email wins over name",
			info:       &UserInfo{Email: "runner@example.com", Name: "Jane Doe"},
			wantStem:   "runner",
			wantSource: StemFromEmail,
		},
		{
			name:       "email with several dots",
			info:       &UserInfo{Email: "a.b.C@example.com"},
			wantStem:   "a_b_c",
			wantSource: StemFromEmail,
		},
		{
			name:       "name when no email",
			info:       &UserInfo{Name: "Jane Doe"},
			wantStem:   "jane_doe",
			wantSource: StemFromName,
		},
		{
			name:       "name keeps dots",
			info:       &UserInfo{Name: "J. R. Doe"},
			wantStem:   "j._r._doe",
			wantSource: StemFromName,
		},
		{
			name:       "empty profile",
			info:       &UserInfo{},
			wantStem:   "google_fit_token_1700000000",
			wantSource: StemFromTimestamp,
		},
		{
			name:       "failed lookup",
			info:       nil,
			wantStem:   "google_fit_token_1700000000",
			wantSource: StemFromTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stem, source := FilenameStem(tt.info, now)
			assert.Equal(t, tt.wantStem, stem)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestFilenameStem_TimestampPattern(t *testing.T) {
	stem, _ := FilenameStem(nil, time.Now())
	assert.Regexp(t, regexp.MustCompile(`^google_fit_token_\d+$`), stem)
}

func TestTokenBundle_Marshal(t *testing.T) {
	bundle := NewTokenBundle("refresh-456", config.Credentials{ClientID: "client-id", ClientSecret: "client-secret"})

	data, err := bundle.Marshal()
	require.NoError(t, err)

	want := "{\n" +
		"    \"refresh_token\": \"refresh-456\",\n" +
		"    \"client_id\": \"client-id\",\n" +
		"    \"client_secret\": \"client-secret\"\n" +
		"}"
	assert.Equal(t, want, string(data))

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Len(t, fields, 3)
	assert.NotContains(t, fields, "access_token")
}
