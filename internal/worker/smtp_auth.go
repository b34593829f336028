package worker

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"golang.org/x/oauth2"

	"github.com/ignite/bulksend/internal/config"
)

// buildAuth picks the SASL mechanism configured for the relay. PLAIN
// is the default and covers most providers once the session is under
// TLS.
func buildAuth(cfg *config.Config) smtp.Auth {
	username := cfg.SMTPUsername()
	switch cfg.SMTP.AuthMethod {
	case "login":
		return &loginAuth{username: username, password: cfg.Sender.Password}
	case "xoauth2":
		return newXOAuth2Auth(username, cfg.SMTP.OAuth)
	default:
		return smtp.PlainAuth("", username, cfg.Sender.Password, cfg.SMTP.Server)
	}
}

// loginAuth implements the legacy LOGIN mechanism still required by
// some relays (Office 365, older appliances).
type loginAuth struct {
	username string
	password string
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	// Same rule the stdlib PLAIN mechanism applies: credentials only
	// travel over TLS, loopback excepted.
	if !server.TLS && !isLocalhostServer(server.Name) {
		return "", nil, fmt.Errorf("LOGIN auth refused on unencrypted connection to %s", server.Name)
	}
	return "LOGIN", nil, nil
}

func isLocalhostServer(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(string(fromServer))) {
	case "username:":
		return []byte(a.username), nil
	case "password:":
		return []byte(a.password), nil
	}
	return nil, fmt.Errorf("unexpected LOGIN challenge %q", fromServer)
}

// xoauth2Auth implements the XOAUTH2 mechanism used by Gmail and
// Microsoft 365. Tokens come from an oauth2.TokenSource so a long run
// keeps authenticating across access-token expiry.
type xoauth2Auth struct {
	username string
	source   oauth2.TokenSource
}

func newXOAuth2Auth(username string, cfg config.OAuthConfig) *xoauth2Auth {
	oc := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
	}
	seed := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	return &xoauth2Auth{
		username: username,
		source:   oc.TokenSource(context.Background(), seed),
	}
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	token, err := a.source.Token()
	if err != nil {
		return "", nil, fmt.Errorf("fetching oauth token: %w", err)
	}
	resp := fmt.Sprintf("user=%s\x01auth=Bearer %s\x01\x01", a.username, token.AccessToken)
	return "XOAUTH2", []byte(resp), nil
}

func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	// On failure the server sends a base64 JSON blob; an empty reply
	// makes it finish with the real SMTP error code.
	if more {
		return []byte(""), nil
	}
	return nil, nil
}
