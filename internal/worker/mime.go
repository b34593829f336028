package worker

import (
	"bytes"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/bulksend/internal/domain"
)

// buildMIME renders msg as a complete RFC 5322 message. When both
// bodies are present they go into a multipart/alternative container,
// text first and HTML last so capable clients prefer the HTML part.
func buildMIME(msg *domain.Message) []byte {
	var buf bytes.Buffer

	from := msg.SenderAddress
	if msg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", encodeHeader(msg.SenderName), msg.SenderAddress)
	}
	buf.WriteString(fmt.Sprintf("From: %s\r\n", from))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", msg.RecipientAddress))
	if msg.ReplyTo != "" {
		buf.WriteString(fmt.Sprintf("Reply-To: %s\r\n", msg.ReplyTo))
	}
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", encodeHeader(msg.Subject)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.New().String(), senderDomain(msg.SenderAddress)))
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		boundary := fmt.Sprintf("=_%s", uuid.New().String()[:16])
		buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n\r\n", boundary))
		writePart(&buf, boundary, "text/plain", msg.TextBody)
		writePart(&buf, boundary, "text/html", msg.HTMLBody)
		buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	case msg.HTMLBody != "":
		buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		writeQuotedPrintable(&buf, msg.HTMLBody)
	default:
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
		buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		writeQuotedPrintable(&buf, msg.TextBody)
	}
	return buf.Bytes()
}

func writePart(buf *bytes.Buffer, boundary, contentType, body string) {
	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString(fmt.Sprintf("Content-Type: %s; charset=UTF-8\r\n", contentType))
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	writeQuotedPrintable(buf, body)
	buf.WriteString("\r\n")
}

func writeQuotedPrintable(buf *bytes.Buffer, body string) {
	w := quotedprintable.NewWriter(buf)
	w.Write([]byte(body))
	w.Close()
}

// encodeHeader Q-encodes a header value when it carries non-ASCII
// text; plain ASCII passes through unchanged.
func encodeHeader(s string) string {
	return mime.QEncoding.Encode("UTF-8", s)
}

func senderDomain(address string) string {
	if i := strings.LastIndex(address, "@"); i >= 0 && i+1 < len(address) {
		return address[i+1:]
	}
	return "localhost"
}
