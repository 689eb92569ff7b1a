package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/aws/smithy-go"
	gomail "github.com/wneessen/go-mail"
)

// SESAPI はSESv2クライアントのうち使用するメソッドのインターフェースです
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender はAmazon SES v2でメールを送信します
// 失敗した場合はretryDelay後に1回だけ再送します
type SESSender struct {
	client     SESAPI
	from       string
	retryDelay time.Duration
}

// NewSESSender は新しいSESSenderを作成します
func NewSESSender(client SESAPI, from string, retryDelay time.Duration) *SESSender {
	return &SESSender{
		client:     client,
		from:       from,
		retryDelay: retryDelay,
	}
}

// Send はテキストのメールを送信します
func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	return s.send(ctx, "SESSender.Send", to, input)
}

// SendWithAttachment は添付ファイル付きのメールをRaw形式で送信します
func (s *SESSender) SendWithAttachment(ctx context.Context, to, subject, body string, attachment Attachment) error {
	raw, err := buildRawMessage(s.from, to, subject, body, attachment)
	if err != nil {
		return fmt.Errorf("failed to build raw message: %w", err)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Raw: &types.RawMessage{Data: raw},
		},
	}
	return s.send(ctx, "SESSender.SendWithAttachment", to, input)
}

func (s *SESSender) send(ctx context.Context, name, to string, input *sesv2.SendEmailInput) error {
	ctx, seg := xray.BeginSubsegment(ctx, name)
	defer seg.Close(nil)

	_, err := s.client.SendEmail(ctx, input)
	if err == nil {
		return nil
	}
	if isClientFault(err) {
		log.Printf("failed to send mail to %s, not retrying: %v", to, err)
		seg.Close(err)
		return fmt.Errorf("failed to send mail: %w", err)
	}

	log.Printf("failed to send mail to %s, retrying in %s: %v", to, s.retryDelay, err)
	select {
	case <-ctx.Done():
		seg.Close(ctx.Err())
		return fmt.Errorf("failed to send mail: %w", ctx.Err())
	case <-time.After(s.retryDelay):
	}

	if _, err := s.client.SendEmail(ctx, input); err != nil {
		log.Printf("failed to send mail to %s after retry: %v", to, err)
		seg.Close(err)
		return fmt.Errorf("failed to send mail after retry: %w", err)
	}
	return nil
}

func isClientFault(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient
}

// buildRawMessage はテキスト本文と添付ファイル1つのmultipart/mixedメッセージを組み立てます
func buildRawMessage(from, to, subject, body string, attachment Attachment) ([]byte, error) {
	m := gomail.NewMsg()
	if err := m.From(from); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(to); err != nil {
		return nil, fmt.Errorf("invalid to address: %w", err)
	}
	m.Subject(subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(gomail.TypeTextPlain, body)

	contentType := attachment.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := m.AttachReader(attachment.Filename, bytes.NewReader(attachment.Data),
		gomail.WithFileContentType(gomail.ContentType(contentType))); err != nil {
		return nil, fmt.Errorf("failed to attach %s: %w", attachment.Filename, err)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
