package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/bulksend/internal/config"
	"github.com/ignite/bulksend/internal/domain"
	"github.com/ignite/bulksend/internal/pkg/logger"
)

// SESSender delivers through the AWS SES v2 API. The API is
// stateless, so EnsureLive and Close have nothing to manage; batch
// boundaries only pace the run.
type SESSender struct {
	client  *sesv2.Client
	timeout time.Duration
}

// NewSESSender builds the SES client. Static credentials win when
// configured; otherwise the default AWS chain applies.
func NewSESSender(ctx context.Context, cfg config.SESConfig) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SESSender{
		client:  sesv2.NewFromConfig(awsCfg),
		timeout: cfg.Timeout(),
	}, nil
}

func (s *SESSender) EnsureLive(ctx context.Context) error {
	return nil
}

// Send delivers one message through the SES SendEmail API.
func (s *SESSender) Send(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	from := msg.SenderAddress
	if msg.SenderName != "" {
		from = fmt.Sprintf("%s <%s>", msg.SenderName, msg.SenderAddress)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{msg.RecipientAddress}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    &types.Body{},
			},
		},
	}
	if msg.HTMLBody != "" {
		input.Content.Simple.Body.Html = &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")}
	}
	if msg.TextBody != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")}
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return classifySES(err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	logger.Debug("ses accepted message", "recipient", msg.RecipientAddress, "message_id", messageID)
	return nil
}

func (s *SESSender) Close() error {
	return nil
}

// classifySES maps SES API failures onto error kinds. Throttles and
// sending pauses clear on their own, rejections of this particular
// message do not, and a suspended account ends the run.
func classifySES(err error) error {
	var throttled *types.TooManyRequestsException
	var limit *types.LimitExceededException
	var paused *types.SendingPausedException
	if errors.As(err, &throttled) || errors.As(err, &limit) || errors.As(err, &paused) {
		return domain.Classify(domain.ErrKindTransientSend, err)
	}

	var suspended *types.AccountSuspendedException
	if errors.As(err, &suspended) {
		return domain.Classify(domain.ErrKindAuthentication, err)
	}

	var rejected *types.MessageRejected
	var badRequest *types.BadRequestException
	var unverified *types.MailFromDomainNotVerifiedException
	if errors.As(err, &rejected) || errors.As(err, &badRequest) || errors.As(err, &unverified) {
		return domain.Classify(domain.ErrKindPermanentSend, err)
	}

	if isNetworkError(err) {
		return domain.Classify(domain.ErrKindConnectivity, err)
	}
	return domain.Classify(domain.ErrKindTransientSend, err)
}
