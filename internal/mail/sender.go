// Package mail はメール送信を担当します
package mail

import (
	"context"
	"log"
)

// Attachment はメールの添付ファイルです
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Sender はメール送信のインターフェースです
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
	SendWithAttachment(ctx context.Context, to, subject, body string, attachment Attachment) error
}

// LogSender は送信せずにログへ出力するSenderです
// ENV=LOCALで使用します
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	log.Printf("mail to=%s subject=%q\n%s", to, subject, body)
	return nil
}

func (s *LogSender) SendWithAttachment(ctx context.Context, to, subject, body string, attachment Attachment) error {
	log.Printf("mail to=%s subject=%q attachment=%s (%d bytes)\n%s", to, subject, attachment.Filename, len(attachment.Data), body)
	return nil
}
