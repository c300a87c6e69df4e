package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/papertrader/internal/domain"
)

type fakeSender struct {
	name     string
	err      error
	titles   []string
	messages []string
}

func (f *fakeSender) Send(_ context.Context, title, message string) error {
	f.titles = append(f.titles, title)
	f.messages = append(f.messages, message)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifier_DispatchesToAllSendersDespiteFailures(t *testing.T) {
	failing := &fakeSender{name: "broken", err: errors.New("down")}
	working := &fakeSender{name: "ok"}
	n := NewNotifier([]Sender{failing, working}, nil, zerolog.Nop())

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), "buy", "Bought KODEX 200",
			domain.AlertField{Key: "Shares", Value: "10"},
			domain.AlertField{Value: "momentum"},
		)
	})

	require.Len(t, working.messages, 1)
	assert.Equal(t, "Bought KODEX 200", working.titles[0])
	assert.Equal(t, "Shares: 10\nmomentum", working.messages[0])
	assert.Len(t, failing.messages, 1)
}

func TestNotifier_EventFilter(t *testing.T) {
	s := &fakeSender{name: "s"}
	n := NewNotifier([]Sender{s}, []string{"stop_loss", " "}, zerolog.Nop())

	n.Notify(context.Background(), "buy", "ignored")
	n.Notify(context.Background(), "stop_loss", "delivered")

	assert.Equal(t, []string{"delivered"}, s.titles)
}

func TestTelegramSender_Send(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewTelegramSender(srv.URL, "TOKEN", "42")
	require.NoError(t, sender.Send(context.Background(), "Daily <report>", "A & B"))

	assert.Equal(t, "/botTOKEN/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Equal(t, "<b>Daily &lt;report&gt;</b>\nA &amp; B", got["text"])
	assert.Equal(t, "telegram", sender.Name())
}

func TestTelegramSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "chat not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewTelegramSender(srv.URL, "T", "1").Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}
