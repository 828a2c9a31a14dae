package notify

import (
	"context"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []Message
}

func (r *recordingMailer) Send(_ context.Context, msg Message) (string, error) {
	r.sent = append(r.sent, msg)
	return "msg-1", nil
}

func testOptions() Options {
	return Options{From: "lab@example.com", AdminTo: "admin@example.com", Company: "Zeta Testing"}
}

func TestDispatcher_Templates(t *testing.T) {
	mailer := &recordingMailer{}
	d, err := NewDispatcher(mailer, testOptions())
	require.NoError(t, err)

	tests := []struct {
		name    string
		req     Request
		to      string
		subject string
		body    string
	}{
		{
			name:    "contact",
			req:     Request{Type: TypeContact, Data: map[string]any{"name": "Ada", "email": "ada@example.com", "message": "<b>hi</b>"}},
			to:      "admin@example.com",
			subject: "New contact message from Ada",
			body:    "&lt;b&gt;hi&lt;/b&gt;",
		},
		{
			name:    "sample",
			req:     Request{Type: TypeSample, Data: map[string]any{"name": "Bo", "email": "bo@example.com", "compound": "TB-500"}},
			to:      "admin@example.com",
			subject: "Sample submission: TB-500 from Bo",
			body:    "TB-500",
		},
		{
			name:    "newsletter",
			req:     Request{Type: TypeNewsletter, Data: map[string]any{"email": "news@example.com"}},
			to:      "news@example.com",
			subject: "Welcome to the Zeta Testing newsletter",
			body:    "news@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := d.Dispatch(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Equal(t, "msg-1", id)

			msg := mailer.sent[len(mailer.sent)-1]
			assert.Equal(t, []string{tt.to}, msg.To)
			assert.Equal(t, "lab@example.com", msg.From)
			assert.Equal(t, tt.subject, msg.Subject)
			assert.Contains(t, msg.HTML, tt.body)
		})
	}
}

func TestDispatcher_UnknownType(t *testing.T) {
	d, err := NewDispatcher(&recordingMailer{}, testOptions())
	require.NoError(t, err)

	_, err = d.Dispatch(context.Background(), Request{Type: "invoice"})
	assert.ErrorIs(t, err, ErrUnknownEmailType)
}

func TestHTTPMailer(t *testing.T) {
	defer gock.Off()

	gock.New("https://mail.example.com").
		Post("/emails").
		MatchHeader("Authorization", "Bearer re_test").
		MatchType("json").
		JSON(map[string]any{
			"from":    "lab@example.com",
			"to":      []string{"admin@example.com"},
			"subject": "hello",
			"html":    "<p>hi</p>",
		}).
		Reply(200).
		JSON(map[string]string{"id": "em_123"})

	m := NewHTTPMailer("https://mail.example.com/", "re_test")
	id, err := m.Send(context.Background(), Message{
		From:    "lab@example.com",
		To:      []string{"admin@example.com"},
		Subject: "hello",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, "em_123", id)
	assert.True(t, gock.IsDone())
}

func TestHTTPMailer_Error(t *testing.T) {
	defer gock.Off()

	gock.New("https://mail.example.com").
		Post("/emails").
		Reply(422).
		JSON(map[string]string{"message": "invalid from address"})

	_, err := NewHTTPMailer("https://mail.example.com", "re_test").Send(context.Background(), Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from address")
}
