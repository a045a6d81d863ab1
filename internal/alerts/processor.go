package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
)

// Worker consumes queued notifications and hands them to a mailer or an SMS
// sender.
type Worker struct {
	server *asynq.Server
	mailer Mailer
	sms    SMSSender
}

func NewWorker(opt asynq.RedisConnOpt, mailer Mailer, sms SMSSender) *Worker {
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueEmails: 10,
			QueueAlerts: 5,
		},
	})
	return &Worker{server: server, mailer: mailer, sms: sms}
}

// Mux routes each task type to its handler.
func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskWelcomeEmail, w.handleWelcomeEmail)
	mux.HandleFunc(TaskPasswordReset, w.handlePasswordReset)
	mux.HandleFunc(TaskBookingEmail, w.handleBookingEmail)
	mux.HandleFunc(TaskBookingSMS, w.handleBookingSMS)
	mux.HandleFunc(TaskAdminAlert, w.handleAdminAlert)
	return mux
}

// Start runs the worker in the background.
func (w *Worker) Start() error {
	return w.server.Start(w.Mux())
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func decode(t *asynq.Task, v any) error {
	if err := json.Unmarshal(t.Payload(), v); err != nil {
		return fmt.Errorf("%s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return nil
}

func (w *Worker) send(ctx context.Context, kind string, env EmailEnvelope) error {
	if err := w.mailer.Send(ctx, env.To, env.Subject, env.Body); err != nil {
		log.Printf("[notify][ERROR] %s send failed: %v", kind, err)
		return err
	}
	return nil
}

func (w *Worker) handleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	if err := w.send(ctx, "WelcomeEmail", p.Envelope); err != nil {
		return err
	}
	log.Printf("[notify] WelcomeEmail sent -> to=%s user=%s", p.Envelope.To, p.UserID)
	return nil
}

func (w *Worker) handlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var p PasswordResetPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	if err := w.send(ctx, "PasswordReset", p.Envelope); err != nil {
		return err
	}
	log.Printf("[notify] PasswordReset sent -> to=%s", p.Envelope.To)
	return nil
}

func (w *Worker) handleBookingEmail(ctx context.Context, t *asynq.Task) error {
	var p BookingEmailPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	if err := w.send(ctx, "BookingEmail", p.Envelope); err != nil {
		return err
	}
	log.Printf("[notify] BookingEmail sent -> reservation=%s event=%s to=%s", p.ReservationID, p.Event, p.Envelope.To)
	return nil
}

func (w *Worker) handleBookingSMS(ctx context.Context, t *asynq.Task) error {
	var p BookingSMSPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	if err := w.sms.SendSMS(ctx, p.To, p.Body); err != nil {
		log.Printf("[notify][ERROR] BookingSMS send failed: %v", err)
		return err
	}
	return nil
}

func (w *Worker) handleAdminAlert(ctx context.Context, t *asynq.Task) error {
	var p AdminAlertPayload
	if err := decode(t, &p); err != nil {
		return err
	}
	if err := w.send(ctx, "AdminAlert", p.Envelope); err != nil {
		return err
	}
	log.Printf("[notify] AdminAlert sent -> severity=%s admin=%s", p.Severity, p.AdminID)
	return nil
}
