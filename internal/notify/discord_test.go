package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantNil   bool
		retryable bool
	}{
		{"204 no content", http.StatusNoContent, true, false},
		{"200 ok", http.StatusOK, true, false},
		{"429 rate limited", http.StatusTooManyRequests, false, true},
		{"500 server error", http.StatusInternalServerError, false, true},
		{"502 bad gateway", http.StatusBadGateway, false, true},
		{"400 bad request", http.StatusBadRequest, false, false},
		{"404 webhook deleted", http.StatusNotFound, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyStatus(tt.status, []byte("body"))
			if tt.wantNil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.retryable, Retryable(err))
		})
	}
}

func TestRetryable_UnknownErrorsRetry(t *testing.T) {
	// transport errors and timeouts arrive unwrapped; they must retry
	assert.True(t, Retryable(assert.AnError))
}

func TestBuildContent_Mentions(t *testing.T) {
	d := Delivery{Message: "Gelebron — spawn time reached."}
	assert.Equal(t, d.Message, buildContent(d))

	d.Audience = []int64{10, 11}
	got := buildContent(d)
	assert.Contains(t, got, "<@10>")
	assert.Contains(t, got, "<@11>")
	assert.Contains(t, got, d.Message)
}

func TestDiscordPayloadShape(t *testing.T) {
	payload := DiscordPayload{
		Username: "Bosstrack",
		Content:  "<@10> — up",
		Embeds: []DiscordEmbed{{
			Title:       "Gelebron",
			Description: "spawn time reached",
			Color:       phaseColor(PhaseSpawn),
			Footer:      &DiscordFooter{Text: "bosstrack | spawn | delivery abc"},
		}},
	}

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Bosstrack", decoded["username"])
	embeds := decoded["embeds"].([]interface{})
	require.Len(t, embeds, 1)
	embed := embeds[0].(map[string]interface{})
	assert.Equal(t, "Gelebron", embed["title"])
	assert.EqualValues(t, colorSpawn, embed["color"])
}

func TestPhaseColor(t *testing.T) {
	assert.Equal(t, colorPre, phaseColor(PhasePre))
	assert.Equal(t, colorSpawn, phaseColor(PhaseSpawn))
	assert.Equal(t, colorCatchup, phaseColor(PhaseCatchup))
	assert.Equal(t, colorHeartbeat, phaseColor(PhaseHeartbeat))
}

func TestNewDiscordSender_DisabledWithoutURL(t *testing.T) {
	assert.Nil(t, NewDiscordSender("", 5, 5))
	assert.NotNil(t, NewDiscordSender("https://example.invalid/webhook", 5, 5))
}

func TestDiscordSender_Send(t *testing.T) {
	var received DiscordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL, 100, 10)
	err := s.Send(context.Background(), Delivery{
		ID:       "attempt-1",
		GuildID:  42,
		Audience: []int64{10},
		Phase:    PhaseSpawn,
		BossName: "Gelebron",
		Message:  "spawn time reached",
	})
	require.NoError(t, err)

	assert.Contains(t, received.Content, "<@10>")
	require.Len(t, received.Embeds, 1)
	assert.Equal(t, "Gelebron", received.Embeds[0].Title)
	assert.Equal(t, colorSpawn, received.Embeds[0].Color)
}

func TestDiscordSender_SendRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL, 100, 10)
	err := s.Send(context.Background(), Delivery{BossName: "Gelebron", Phase: PhaseSpawn})
	require.Error(t, err)
	assert.True(t, Retryable(err))
}
