// Package message prepares campaign content once per run and derives a
// per-recipient domain.Message from it. Personalization is plain token
// substitution ({{email}}, {{name}}), nothing more.
package message

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ignite/bulksend/internal/config"
	"github.com/ignite/bulksend/internal/domain"
)

var (
	ErrNoSubject = errors.New("message subject is required")
	ErrNoBody    = errors.New("message needs an html or text body")
)

// Content is the prepared campaign content, fixed for the whole run.
// Either body may be empty; at least one must be present.
type Content struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// LoadContent resolves configured content. Inline strings win over file
// paths when both are set.
func LoadContent(cfg config.MessageConfig) (*Content, error) {
	c := &Content{
		Subject:  cfg.Subject,
		HTMLBody: cfg.HTMLBody,
		TextBody: cfg.TextBody,
	}

	if c.HTMLBody == "" && cfg.HTMLPath != "" {
		data, err := os.ReadFile(cfg.HTMLPath)
		if err != nil {
			return nil, fmt.Errorf("read html body: %w", err)
		}
		c.HTMLBody = string(data)
	}
	if c.TextBody == "" && cfg.TextPath != "" {
		data, err := os.ReadFile(cfg.TextPath)
		if err != nil {
			return nil, fmt.Errorf("read text body: %w", err)
		}
		c.TextBody = string(data)
	}

	if strings.TrimSpace(c.Subject) == "" {
		return nil, ErrNoSubject
	}
	if c.HTMLBody == "" && c.TextBody == "" {
		return nil, ErrNoBody
	}
	return c, nil
}

// Builder derives one message per recipient from prepared content and
// the sending identity. Build is pure: the same recipient always yields
// the same message, and the prepared content is never mutated.
type Builder struct {
	content *Content
	sender  config.SenderConfig
}

// NewBuilder creates a message builder for one run.
func NewBuilder(content *Content, sender config.SenderConfig) *Builder {
	return &Builder{content: content, sender: sender}
}

// Build produces the message for r.
func (b *Builder) Build(r domain.Recipient) domain.Message {
	return domain.Message{
		Subject:          inject(b.content.Subject, r),
		HTMLBody:         inject(b.content.HTMLBody, r),
		TextBody:         inject(b.content.TextBody, r),
		SenderName:       b.sender.Name,
		SenderAddress:    b.sender.Email,
		ReplyTo:          b.sender.ReplyTo,
		RecipientAddress: r.Address,
	}
}

// inject substitutes {{email}} and {{name}} with recipient data. A
// recipient without auxiliary data gets {{name}} replaced by the empty
// string.
func inject(s string, r domain.Recipient) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "{{email}}", r.Address)
	s = strings.ReplaceAll(s, "{{name}}", r.AuxiliaryData)
	return s
}
