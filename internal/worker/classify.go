package worker

import (
	"errors"
	"io"
	"net"
	"net/textproto"
	"syscall"

	"github.com/ignite/bulksend/internal/domain"
)

// classifySend maps a delivery failure onto an error kind. SMTP reply
// codes decide where possible; network-level failures mean the session
// is gone and a fresh connection may succeed. Errors that are already
// classified pass through untouched.
func classifySend(err error) error {
	if err == nil {
		return nil
	}
	var classified *domain.ClassifiedError
	if errors.As(err, &classified) {
		return err
	}
	var proto *textproto.Error
	if errors.As(err, &proto) {
		return domain.Classify(kindForCode(proto.Code), err)
	}
	if isNetworkError(err) {
		return domain.Classify(domain.ErrKindConnectivity, err)
	}
	// Unknown failures get retried rather than dropped.
	return domain.Classify(domain.ErrKindTransientSend, err)
}

// classifyAuth maps an authentication-phase failure. Temporary server
// rejections (4xx) stay retryable; any other protocol-level rejection
// means the credentials themselves are bad.
func classifyAuth(err error) error {
	if err == nil {
		return nil
	}
	var proto *textproto.Error
	if errors.As(err, &proto) && proto.Code >= 400 && proto.Code < 500 {
		return domain.Classify(domain.ErrKindTransientSend, err)
	}
	if isNetworkError(err) {
		return domain.Classify(domain.ErrKindConnectivity, err)
	}
	return domain.Classify(domain.ErrKindAuthentication, err)
}

func kindForCode(code int) domain.ErrorKind {
	switch code {
	case 530, 534, 535:
		// Auth-required and bad-credential replies can show up on any
		// command once a session loses its authentication.
		return domain.ErrKindAuthentication
	}
	switch {
	case code >= 400 && code < 500:
		return domain.ErrKindTransientSend
	case code >= 500:
		return domain.ErrKindPermanentSend
	default:
		return domain.ErrKindTransientSend
	}
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE)
}
