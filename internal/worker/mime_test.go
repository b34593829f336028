package worker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/bulksend/internal/domain"
)

func testMessage() *domain.Message {
	return &domain.Message{
		Subject:          "Weekly update",
		HTMLBody:         "<p>Hello Jo</p>",
		TextBody:         "Hello Jo",
		SenderName:       "Example Ops",
		SenderAddress:    "ops@example.com",
		ReplyTo:          "replies@example.com",
		RecipientAddress: "jo@example.net",
	}
}

func TestBuildMIMEMultipart(t *testing.T) {
	raw := string(buildMIME(testMessage()))

	assert.Contains(t, raw, "From: Example Ops <ops@example.com>\r\n")
	assert.Contains(t, raw, "To: jo@example.net\r\n")
	assert.Contains(t, raw, "Reply-To: replies@example.com\r\n")
	assert.Contains(t, raw, "Subject: Weekly update\r\n")
	assert.Contains(t, raw, "MIME-Version: 1.0\r\n")
	assert.Contains(t, raw, "Content-Type: multipart/alternative; boundary=")
	assert.Contains(t, raw, "Message-ID: <")
	assert.Contains(t, raw, "@example.com>\r\n")

	// Text part first, HTML second, so clients prefer the HTML
	// alternative.
	textAt := strings.Index(raw, "Content-Type: text/plain")
	htmlAt := strings.Index(raw, "Content-Type: text/html")
	require.Greater(t, textAt, 0)
	require.Greater(t, htmlAt, 0)
	assert.Less(t, textAt, htmlAt)

	// Two opening markers plus the closing marker.
	boundary := raw[strings.Index(raw, "boundary=\"")+len("boundary=\""):]
	boundary = boundary[:strings.Index(boundary, "\"")]
	assert.True(t, strings.HasPrefix(boundary, "=_"))
	assert.Equal(t, 2, strings.Count(raw, "--"+boundary+"\r\n"))
	assert.Contains(t, raw, "--"+boundary+"--\r\n")
}

func TestBuildMIMEHTMLOnly(t *testing.T) {
	msg := testMessage()
	msg.TextBody = ""
	raw := string(buildMIME(msg))

	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n")
	assert.NotContains(t, raw, "multipart/alternative")
	assert.Contains(t, raw, "Hello Jo")
}

func TestBuildMIMETextOnly(t *testing.T) {
	msg := testMessage()
	msg.HTMLBody = ""
	raw := string(buildMIME(msg))

	assert.Contains(t, raw, "Content-Type: text/plain; charset=UTF-8\r\n")
	assert.NotContains(t, raw, "multipart/alternative")
}

func TestBuildMIMEOmitsEmptyReplyTo(t *testing.T) {
	msg := testMessage()
	msg.ReplyTo = ""
	raw := string(buildMIME(msg))

	assert.NotContains(t, raw, "Reply-To:")
}

func TestBuildMIMEEncodesUnicodeSubject(t *testing.T) {
	msg := testMessage()
	msg.Subject = "Résumé für Jürgen"
	raw := string(buildMIME(msg))

	assert.Contains(t, raw, "Subject: =?UTF-8?q?")
	assert.NotContains(t, raw, "Subject: Résumé")
}

func TestBuildMIMEEncodesUnicodeSenderName(t *testing.T) {
	msg := testMessage()
	msg.SenderName = "Käthe"
	raw := string(buildMIME(msg))

	assert.Contains(t, raw, "From: =?UTF-8?q?")
	assert.Contains(t, raw, "<ops@example.com>")
}

func TestBuildMIMEQuotedPrintableBodies(t *testing.T) {
	msg := testMessage()
	msg.TextBody = "Grüße aus Köln"
	msg.HTMLBody = ""
	raw := string(buildMIME(msg))

	assert.Contains(t, raw, "Content-Transfer-Encoding: quoted-printable")
	assert.Contains(t, raw, "Gr=C3=BC=C3=9Fe aus K=C3=B6ln")
}

func TestBuildMIMEMessageIDFallbackDomain(t *testing.T) {
	msg := testMessage()
	msg.SenderAddress = "not-an-address"
	raw := string(buildMIME(msg))

	assert.Contains(t, raw, "@localhost>")
}

func TestBuildMIMEUniqueMessageIDs(t *testing.T) {
	msg := testMessage()
	first := string(buildMIME(msg))
	second := string(buildMIME(msg))

	assert.NotEqual(t, messageID(t, first), messageID(t, second))
}

func messageID(t *testing.T, raw string) string {
	t.Helper()
	start := strings.Index(raw, "Message-ID: <")
	require.GreaterOrEqual(t, start, 0)
	rest := raw[start:]
	end := strings.Index(rest, ">")
	require.Greater(t, end, 0)
	return rest[:end]
}
