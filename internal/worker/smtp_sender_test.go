package worker

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/bulksend/internal/config"
	"github.com/ignite/bulksend/internal/domain"
)

// fakeSMTPServer speaks just enough ESMTP on a loopback socket to
// exercise the real client: EHLO, AUTH PLAIN, the envelope commands
// and DATA. Replies are scriptable per command.
type fakeSMTPServer struct {
	ln net.Listener

	mu        sync.Mutex
	conns     []net.Conn
	accepted  int
	commands  []string
	messages  []string
	authReply string
	mailReply string
	rcptReply string
	dataReply string
}

func newFakeSMTPServer(t *testing.T) *fakeSMTPServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeSMTPServer{
		ln:        ln,
		authReply: "235 2.7.0 accepted",
		mailReply: "250 sender ok",
		rcptReply: "250 recipient ok",
		dataReply: "250 queued",
	}
	go s.serve()
	t.Cleanup(func() { ln.Close() })
	return s
}

func (s *fakeSMTPServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTPServer) serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.accepted++
		s.conns = append(s.conns, conn)
		s.mu.Unlock()
		go s.handle(conn)
	}
}

func (s *fakeSMTPServer) handle(conn net.Conn) {
	defer conn.Close()
	fmt.Fprintf(conn, "220 fake ESMTP ready\r\n")

	r := bufio.NewReader(conn)
	inData := false
	var body strings.Builder
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")

		if inData {
			if line == "." {
				inData = false
				s.mu.Lock()
				s.messages = append(s.messages, body.String())
				reply := s.dataReply
				s.mu.Unlock()
				body.Reset()
				fmt.Fprintf(conn, "%s\r\n", reply)
				continue
			}
			body.WriteString(line)
			body.WriteString("\n")
			continue
		}

		s.mu.Lock()
		s.commands = append(s.commands, line)
		s.mu.Unlock()

		verb := strings.ToUpper(line)
		if i := strings.Index(verb, " "); i > 0 {
			verb = verb[:i]
		}
		switch verb {
		case "EHLO", "HELO":
			fmt.Fprintf(conn, "250-fake greets you\r\n250-AUTH PLAIN LOGIN\r\n250 8BITMIME\r\n")
		case "AUTH":
			s.reply(conn, func() string { return s.authReply })
		case "MAIL":
			s.reply(conn, func() string { return s.mailReply })
		case "RCPT":
			s.reply(conn, func() string { return s.rcptReply })
		case "DATA":
			fmt.Fprintf(conn, "354 go ahead\r\n")
			inData = true
		case "QUIT":
			fmt.Fprintf(conn, "221 bye\r\n")
			return
		default:
			fmt.Fprintf(conn, "250 ok\r\n")
		}
	}
}

func (s *fakeSMTPServer) reply(conn net.Conn, pick func() string) {
	s.mu.Lock()
	line := pick()
	s.mu.Unlock()
	fmt.Fprintf(conn, "%s\r\n", line)
}

func (s *fakeSMTPServer) setRcptReply(line string) {
	s.mu.Lock()
	s.rcptReply = line
	s.mu.Unlock()
}

func (s *fakeSMTPServer) dropConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conns {
		c.Close()
	}
	s.conns = nil
}

func (s *fakeSMTPServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

func (s *fakeSMTPServer) commandLog() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.commands, "\n")
}

func (s *fakeSMTPServer) lastMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages) == 0 {
		return ""
	}
	return s.messages[len(s.messages)-1]
}

func smtpTestConfig(port int) *config.Config {
	return &config.Config{
		SMTP: config.SMTPConfig{
			Server:         "127.0.0.1",
			Port:           port,
			TimeoutSeconds: 2,
			AuthMethod:     "plain",
		},
		Sender: config.SenderConfig{Email: "ops@example.com", Name: "Example Ops", Password: "pw"},
	}
}

func TestSMTPSenderDeliversMessage(t *testing.T) {
	server := newFakeSMTPServer(t)
	sender := NewSMTPSender(smtpTestConfig(server.port()))
	defer sender.Close()

	ctx := context.Background()
	require.NoError(t, sender.EnsureLive(ctx))
	require.NoError(t, sender.Send(ctx, testMessage()))

	log := server.commandLog()
	assert.Contains(t, log, "AUTH PLAIN")
	assert.Contains(t, log, "MAIL FROM:<ops@example.com>")
	assert.Contains(t, log, "RCPT TO:<jo@example.net>")

	raw := server.lastMessage()
	assert.Contains(t, raw, "From: Example Ops <ops@example.com>")
	assert.Contains(t, raw, "To: jo@example.net")
	assert.Contains(t, raw, "Subject: Weekly update")

	require.NoError(t, sender.Close())
	assert.Contains(t, server.commandLog(), "QUIT")
}

func TestSMTPSenderEnsureLiveProbesWithNoop(t *testing.T) {
	server := newFakeSMTPServer(t)
	sender := NewSMTPSender(smtpTestConfig(server.port()))
	defer sender.Close()

	ctx := context.Background()
	require.NoError(t, sender.EnsureLive(ctx))
	require.NoError(t, sender.EnsureLive(ctx))

	assert.Equal(t, 1, server.connCount(), "a live session is reused")
	assert.Contains(t, server.commandLog(), "NOOP")
}

func TestSMTPSenderEnsureLiveReopensDeadSession(t *testing.T) {
	server := newFakeSMTPServer(t)
	sender := NewSMTPSender(smtpTestConfig(server.port()))
	defer sender.Close()

	ctx := context.Background()
	require.NoError(t, sender.EnsureLive(ctx))

	server.dropConnections()
	require.NoError(t, sender.EnsureLive(ctx))

	assert.Equal(t, 2, server.connCount(), "dead session replaced with a fresh one")
	require.NoError(t, sender.Send(ctx, testMessage()))
}

func TestSMTPSenderAuthFailure(t *testing.T) {
	server := newFakeSMTPServer(t)
	server.mu.Lock()
	server.authReply = "535 5.7.8 authentication failed"
	server.mu.Unlock()

	sender := NewSMTPSender(smtpTestConfig(server.port()))
	defer sender.Close()

	err := sender.EnsureLive(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.ErrKindAuthentication, domain.KindOf(err))
}

func TestSMTPSenderRcptRejectionIsPermanent(t *testing.T) {
	server := newFakeSMTPServer(t)
	server.setRcptReply("550 5.1.1 no such user")

	sender := NewSMTPSender(smtpTestConfig(server.port()))
	defer sender.Close()

	ctx := context.Background()
	require.NoError(t, sender.EnsureLive(ctx))

	err := sender.Send(ctx, testMessage())
	require.Error(t, err)
	assert.Equal(t, domain.ErrKindPermanentSend, domain.KindOf(err))

	// The rejection only killed the envelope, not the session.
	assert.Contains(t, server.commandLog(), "RSET")
	server.setRcptReply("250 recipient ok")
	assert.NoError(t, sender.Send(ctx, testMessage()))
	assert.Equal(t, 1, server.connCount())
}

func TestSMTPSenderTransientDataRejection(t *testing.T) {
	server := newFakeSMTPServer(t)
	server.mu.Lock()
	server.dataReply = "421 4.7.0 try again later"
	server.mu.Unlock()

	sender := NewSMTPSender(smtpTestConfig(server.port()))
	defer sender.Close()

	ctx := context.Background()
	require.NoError(t, sender.EnsureLive(ctx))

	err := sender.Send(ctx, testMessage())
	require.Error(t, err)
	assert.Equal(t, domain.ErrKindTransientSend, domain.KindOf(err))
	assert.Contains(t, err.Error(), "DATA close")
}

func TestSMTPSenderSendWithoutSession(t *testing.T) {
	server := newFakeSMTPServer(t)
	sender := NewSMTPSender(smtpTestConfig(server.port()))

	err := sender.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.Equal(t, domain.ErrKindConnectivity, domain.KindOf(err))
}

func TestSMTPSenderDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	sender := NewSMTPSender(smtpTestConfig(port))
	err = sender.EnsureLive(context.Background())
	require.Error(t, err)
	assert.Equal(t, domain.ErrKindConnectivity, domain.KindOf(err))
}

func TestSMTPSenderCloseIdempotent(t *testing.T) {
	server := newFakeSMTPServer(t)
	sender := NewSMTPSender(smtpTestConfig(server.port()))

	require.NoError(t, sender.Close())
	require.NoError(t, sender.EnsureLive(context.Background()))
	require.NoError(t, sender.Close())
	require.NoError(t, sender.Close())
}
