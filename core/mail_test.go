package core

import (
	"fmt"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger fails the test on errors.
type testLogger struct{ t *testing.T }

func (l testLogger) Debug(string, ...interface{}) {}
func (l testLogger) Info(string, ...interface{})  {}
func (l testLogger) Warn(string, ...interface{})  {}
func (l testLogger) Error(msg string, args ...interface{}) {
	l.t.Errorf("unexpected error log: %s %v", msg, args)
}
func (l testLogger) Fatal(msg string, args ...interface{}) {
	l.t.Fatalf("unexpected fatal log: %s %v", msg, args)
}

func TestParseEmailTemplates(t *testing.T) {
	conf := NewTestConfig()
	conf.FrontendBaseURL = "https://shule.test"
	ParseEmailTemplates(conf, testLogger{t})

	tests := []struct {
		name     string
		data     map[string]string
		wantText string
		wantHTML string
	}{
		{
			name:     "password_reset",
			data:     map[string]string{"Name": "Awe", "UID": "dWlk", "Token": "abc-123"},
			wantText: "https://shule.test/password-reset/dWlk/abc-123",
			wantHTML: `<a href="https://shule.test/password-reset/dWlk/abc-123">`,
		},
		{
			name:     "notice",
			data:     map[string]string{"Title": "Sports day", "Body": "Friday at 9."},
			wantText: "Sports day\n\nFriday at 9.",
			wantHTML: "<h2>Sports day</h2>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := EmailMessage{
				To:           []mail.Address{{Address: "a@test.test"}},
				TemplateName: tt.name,
				TemplateData: tt.data,
			}
			require.NoError(t, msg.Render())
			assert.Contains(t, msg.TextContent, tt.wantText)
			assert.Contains(t, msg.TextContent, "\n--\nShule\n", "base layout")
			assert.Contains(t, msg.HTMLContent, tt.wantHTML)
			assert.Contains(t, msg.HTMLContent, "<!DOCTYPE html>", "base layout")
		})
	}

	t.Run("Missing data", func(t *testing.T) {
		msg := EmailMessage{TemplateName: "notice", TemplateData: map[string]string{}}
		assert.Error(t, msg.Render())
	})

	t.Run("Unknown template", func(t *testing.T) {
		msg := EmailMessage{TemplateName: "nope"}
		assert.EqualError(t, msg.Render(), fmt.Sprintf("email template %q not found", "nope"))
	})

	t.Run("Plain body", func(t *testing.T) {
		msg := EmailMessage{BodyStr: "hello"}
		require.NoError(t, msg.Render())
		assert.Equal(t, "hello", msg.TextContent)
	})
}
