package worker

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/ignite/bulksend/internal/config"
	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/pkg/logger"
)

type connState int

const (
	stateClosed connState = iota
	stateAuthenticating
	stateOpen
)

// SMTPSender manages a single SMTP session for the engine: opened
// lazily, probed and reopened after batch pauses, torn down on every
// exit path. It is not safe for concurrent use; the engine drives it
// from one goroutine.
type SMTPSender struct {
	host    string
	port    int
	useSSL  bool
	timeout time.Duration
	auth    smtp.Auth

	client *smtp.Client
	conn   net.Conn
	state  connState
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:    cfg.SMTP.Server,
		port:    cfg.SMTP.Port,
		useSSL:  cfg.SMTP.UseSSL,
		timeout: cfg.SMTP.Timeout(),
		auth:    buildAuth(cfg),
	}
}

// EnsureLive guarantees an authenticated session. An existing session
// is probed with NOOP; a dead or absent one is replaced.
func (s *SMTPSender) EnsureLive(ctx context.Context) error {
	if s.state == stateOpen && s.client != nil {
		s.setDeadline()
		err := s.client.Noop()
		s.clearDeadline()
		if err == nil {
			return nil
		}
		logger.Debug("smtp session stale, reopening", "error", err)
		s.reset()
	}
	return s.open(ctx)
}

func (s *SMTPSender) open(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	dialer := &net.Dialer{Timeout: s.timeout}

	var conn net.Conn
	var err error
	if s.useSSL {
		// Implicit TLS: the socket is encrypted from the first byte.
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.host}}
		conn, err = tlsDialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return domain.Classify(domain.ErrKindConnectivity, fmt.Errorf("SMTP connect to %s: %w", addr, err))
	}

	client, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return domain.Classify(domain.ErrKindConnectivity, fmt.Errorf("SMTP handshake with %s: %w", addr, err))
	}

	if !s.useSSL {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				client.Close()
				return domain.Classify(domain.ErrKindConnectivity, fmt.Errorf("STARTTLS: %w", err))
			}
		}
	}

	s.state = stateAuthenticating
	if err := client.Auth(s.auth); err != nil {
		client.Close()
		s.state = stateClosed
		return classifyAuth(fmt.Errorf("SMTP auth: %w", err))
	}

	s.client = client
	s.conn = conn
	s.state = stateOpen
	logger.Debug("smtp session open", "server", addr)
	return nil
}

// Send delivers one message over the open session. Sending on a closed
// sender is a connectivity error; the retry cycle repairs it through
// EnsureLive.
func (s *SMTPSender) Send(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.state != stateOpen || s.client == nil {
		return domain.Classify(domain.ErrKindConnectivity, errors.New("smtp session not open"))
	}

	s.setDeadline()
	defer s.clearDeadline()

	if err := s.client.Mail(msg.SenderAddress); err != nil {
		return s.sendFailure("MAIL FROM", err)
	}
	if err := s.client.Rcpt(msg.RecipientAddress); err != nil {
		return s.sendFailure("RCPT TO", err)
	}
	w, err := s.client.Data()
	if err != nil {
		return s.sendFailure("DATA", err)
	}
	if _, err := w.Write(buildMIME(msg)); err != nil {
		w.Close()
		return s.sendFailure("write", err)
	}
	if err := w.Close(); err != nil {
		return s.sendFailure("DATA close", err)
	}
	return nil
}

// sendFailure classifies a mid-transaction error and puts the session
// back into a known state: protocol rejections leave it usable after a
// RSET, network failures mean it is gone.
func (s *SMTPSender) sendFailure(op string, err error) error {
	classified := classifySend(fmt.Errorf("%s: %w", op, err))
	var proto *textproto.Error
	if errors.As(err, &proto) {
		if rstErr := s.client.Reset(); rstErr != nil {
			s.reset()
		}
	} else {
		s.reset()
	}
	return classified
}

// Close ends the session with QUIT when possible. Safe to call any
// number of times.
func (s *SMTPSender) Close() error {
	if s.client == nil {
		s.state = stateClosed
		return nil
	}
	s.setDeadline()
	if err := s.client.Quit(); err != nil {
		logger.Debug("smtp quit failed, dropping connection", "error", err)
		s.client.Close()
	}
	s.client = nil
	s.conn = nil
	s.state = stateClosed
	return nil
}

// reset drops the session without QUIT, for when the connection is
// already broken.
func (s *SMTPSender) reset() {
	if s.client != nil {
		s.client.Close()
	}
	s.client = nil
	s.conn = nil
	s.state = stateClosed
}

// setDeadline bounds the next SMTP exchange so a hung server cannot
// stall the run indefinitely.
func (s *SMTPSender) setDeadline() {
	if s.conn != nil && s.timeout > 0 {
		s.conn.SetDeadline(time.Now().Add(s.timeout))
	}
}

func (s *SMTPSender) clearDeadline() {
	if s.conn != nil {
		s.conn.SetDeadline(time.Time{})
	}
}
