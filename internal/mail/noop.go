package mail

import "context"

// NoopMailer drops verification mails when no queue is configured.
type NoopMailer struct{}

func NewNoopMailer() *NoopMailer {
	return &NoopMailer{}
}

func (*NoopMailer) SendVerificationEmail(ctx context.Context, email, verifyURL string) error {
	return nil
}
