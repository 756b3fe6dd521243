package emailsvc

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	logsvc "github.com/trezcool/shule/services/logger"
)

func TestMockService_SendMessages(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewMockService(conf, logsvc.NewNop())

	svc.SendMessages(
		&core.EmailMessage{To: []mail.Address{{Name: "T", Address: "t@test.test"}}, Subject: "Hi", BodyStr: "hello"},
		&core.EmailMessage{Subject: "nobody", BodyStr: "no recipients"},
		&core.EmailMessage{To: []mail.Address{{Address: "t@test.test"}}, Subject: "empty"},
	)

	sent := svc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hi", sent[0].Subject)
	assert.Equal(t, "hello", sent[0].TextContent)

	svc.Reset()
	assert.Empty(t, svc.Sent())
}

func TestSendgridService_prepare(t *testing.T) {
	conf := core.NewTestConfig()
	svc := NewSendgridService(conf, logsvc.NewNop()).(*sendgridService)

	m := svc.prepare(core.EmailMessage{
		To:          []mail.Address{{Name: "A", Address: "a@test.test"}},
		Bcc:         []mail.Address{{Address: "b@test.test"}, {Address: "c@test.test"}},
		Subject:     "Notice",
		TextContent: "text",
	})

	assert.Equal(t, "[Shule] Notice", m.Subject)
	require.Len(t, m.Personalizations, 1)
	p := m.Personalizations[0]
	assert.Len(t, p.To, 1)
	assert.Len(t, p.BCC, 2)
	assert.Equal(t, "noreply@localhost", m.From.Address)
	require.Len(t, m.Content, 1)
	assert.Equal(t, "text/plain", m.Content[0].Type)

	t.Run("Large audiences", func(t *testing.T) {
		bcc := make([]mail.Address, 2500)
		for i := range bcc {
			bcc[i] = mail.Address{Address: fmt.Sprintf("parent%d@test.test", i)}
		}
		m := svc.prepare(core.EmailMessage{Bcc: bcc, Subject: "Notice", TextContent: "text"})

		require.Len(t, m.Personalizations, 3)
		total := 0
		for _, p := range m.Personalizations {
			require.Len(t, p.To, 1)
			assert.Equal(t, "noreply@localhost", p.To[0].Address, "bcc-only mails are addressed to the sender")
			assert.LessOrEqual(t, len(p.To)+len(p.BCC), maxRecipients)
			total += len(p.BCC)
		}
		assert.Equal(t, len(bcc), total)
	})
}

func TestSendgridService_noticePayload(t *testing.T) {
	conf := core.NewTestConfig()
	core.ParseEmailTemplates(conf, logsvc.NewNop())
	svc := NewSendgridService(conf, logsvc.NewNop()).(*sendgridService)

	var sent []rest.Request
	orig := sendgridAPI
	sendgridAPI = func(req rest.Request) (*rest.Response, error) {
		sent = append(sent, req)
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}
	t.Cleanup(func() { sendgridAPI = orig })

	ok := svc.sendMessage(&core.EmailMessage{
		Bcc:          []mail.Address{{Name: "Parent", Address: "parent@test.test"}},
		Subject:      "Sports day",
		TemplateName: "notice",
		TemplateData: map[string]string{"Title": "Sports day", "Body": "Friday at 9."},
	})
	require.True(t, ok)
	require.Len(t, sent, 1)
	assert.Equal(t, rest.Post, sent[0].Method)
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", sent[0].BaseURL)

	var payload struct {
		Subject          string   `json:"subject"`
		Categories       []string `json:"categories"`
		Personalizations []struct {
			To  []struct{ Email string } `json:"to"`
			BCC []struct{ Email string } `json:"bcc"`
		} `json:"personalizations"`
		Content []struct {
			Type  string `json:"type"`
			Value string `json:"value"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(sent[0].Body, &payload))
	assert.Equal(t, "[Shule] Sports day", payload.Subject)
	assert.Equal(t, []string{"notice"}, payload.Categories)
	require.Len(t, payload.Personalizations, 1)
	assert.Equal(t, "noreply@localhost", payload.Personalizations[0].To[0].Email)
	assert.Equal(t, "parent@test.test", payload.Personalizations[0].BCC[0].Email)
	require.Len(t, payload.Content, 2)
	assert.Contains(t, payload.Content[0].Value, "Friday at 9.")
	assert.Contains(t, payload.Content[1].Value, "<h2>Sports day</h2>")

	t.Run("Unknown templates are not sent", func(t *testing.T) {
		sent = nil
		ok := svc.sendMessage(&core.EmailMessage{
			To:           []mail.Address{{Address: "a@test.test"}},
			TemplateName: "nope",
		})
		assert.False(t, ok)
		assert.Empty(t, sent)
	})
}
