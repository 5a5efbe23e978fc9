package mail

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

const TypeSendEmailVerification = "email:verification"

// Enqueuer pushes verification mails onto the task queue. Rendering and SMTP
// delivery happen in an external worker; this core only enqueues.
type Enqueuer struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewEnqueuer(redisAddr string, log zerolog.Logger) *Enqueuer {
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	return &Enqueuer{client: client, log: log}
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

func (e *Enqueuer) SendVerificationEmail(ctx context.Context, email, verifyURL string) error {
	payload, _ := json.Marshal(map[string]string{
		"email":      email,
		"verify_url": verifyURL,
	})
	task := asynq.NewTask(TypeSendEmailVerification, payload)
	if _, err := e.client.EnqueueContext(ctx, task); err != nil {
		e.log.Warn().Err(err).Msg("enqueue verification email failed")
		return err
	}
	return nil
}
