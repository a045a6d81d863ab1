package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/servicehub/internal/account"
	"github.com/sudo-init-do/servicehub/internal/booking"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Accounts resolves the people a notification goes to.
type Accounts interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
	List(ctx context.Context, roles ...account.Role) ([]account.Account, error)
}

// Inbox stores in-app notifications.
type Inbox interface {
	Create(ctx context.Context, n Notification) error
}

// Dispatcher turns domain events into queued emails, text messages and
// in-app notifications. Every method is best effort.
type Dispatcher struct {
	queue    Enqueuer
	accounts Accounts
	inbox    Inbox
	appURL   string
	resetTTL time.Duration
}

// NewDispatcher returns a dispatcher. A nil queue logs envelopes instead of
// enqueueing them, which is how the API runs without Redis.
func NewDispatcher(queue Enqueuer, accounts Accounts, inbox Inbox, appURL string, resetTTL time.Duration) *Dispatcher {
	return &Dispatcher{
		queue:    queue,
		accounts: accounts,
		inbox:    inbox,
		appURL:   strings.TrimRight(appURL, "/"),
		resetTTL: resetTTL,
	}
}

func (d *Dispatcher) enqueue(taskType string, payload any, queue string) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if d.queue == nil {
		log.Printf("[notify] queue disabled, %s: %s", taskType, b)
		return nil
	}
	_, err = d.queue.Enqueue(asynq.NewTask(taskType, b), asynq.Queue(queue), asynq.MaxRetry(5))
	return err
}

// Welcome schedules a welcome email to a new account.
func (d *Dispatcher) Welcome(_ context.Context, to account.Identity) error {
	env := EmailEnvelope{
		To:      to.Email,
		Subject: fmt.Sprintf("Welcome to ServiceHub, %s!", to.Name),
		Body:    fmt.Sprintf("Hi %s, thanks for joining ServiceHub.\n\nOpen ServiceHub: %s\n\nIf the link doesn't work, copy and paste the URL above.", to.Name, d.appURL),
	}
	payload := WelcomeEmailPayload{UserID: to.ID, Name: to.Name, Envelope: env, SentAt: time.Now()}
	return d.enqueue(TaskWelcomeEmail, payload, QueueEmails)
}

// PasswordReset schedules the reset link email.
func (d *Dispatcher) PasswordReset(_ context.Context, to account.Identity, resetURL string) error {
	minutes := int(d.resetTTL.Minutes())
	body := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your ServiceHub password.\n\nTo proceed, open the link below:\n%s\n\nThis link expires in %d minutes. If you did not request this, no action is required.\n\nServiceHub Team", to.Name, resetURL, minutes)
	env := EmailEnvelope{To: to.Email, Subject: "Password reset instructions", Body: body}
	payload := PasswordResetPayload{UserID: to.ID, ResetURL: resetURL, Envelope: env, Requested: time.Now()}
	return d.enqueue(TaskPasswordReset, payload, QueueEmails)
}

// BookingCreated tells the provider about a new request.
func (d *Dispatcher) BookingCreated(ctx context.Context, r booking.Reservation) {
	d.booking(ctx, r, r.ProviderID, "created",
		"New booking request",
		fmt.Sprintf("You have a new booking request for %s.", r.Date.Format("Mon 02 Jan 2006 15:04")),
		false)
}

// BookingDecided tells the customer whether the provider accepted.
func (d *Dispatcher) BookingDecided(ctx context.Context, r booking.Reservation) {
	title := "Your booking was accepted"
	body := fmt.Sprintf("Your booking for %s was accepted.", r.Date.Format("Mon 02 Jan 2006 15:04"))
	if r.Status == booking.StatusRejected {
		title = "Your booking was declined"
		body = "The provider declined your booking request."
	}
	d.booking(ctx, r, r.CustomerID, string(r.Status), title, body, true)
}

// BookingCompleted tells the provider the customer confirmed the job.
func (d *Dispatcher) BookingCompleted(ctx context.Context, r booking.Reservation) {
	d.booking(ctx, r, r.ProviderID, "completed",
		"Booking completed",
		fmt.Sprintf("The customer marked the job as completed. %.2f has been added to your earnings.", r.Price),
		false)
}

func (d *Dispatcher) booking(ctx context.Context, r booking.Reservation, userID, event, title, body string, sms bool) {
	to, err := d.accounts.GetByID(ctx, userID)
	if err != nil {
		log.Printf("[notify][ERROR] booking %s %s: recipient %s: %v", r.ID, event, userID, err)
		return
	}
	info := to.Info()

	if d.inbox != nil {
		n := Notification{UserID: info.ID, Type: "booking_" + event, Title: title, Body: body, Reference: r.ID}
		if err := d.inbox.Create(ctx, n); err != nil {
			log.Printf("[notify][ERROR] booking %s %s: inbox: %v", r.ID, event, err)
		}
	}

	payload := BookingEmailPayload{
		ReservationID: r.ID,
		Event:         event,
		UserID:        info.ID,
		Envelope: EmailEnvelope{
			To:      info.Email,
			Subject: title,
			Body:    fmt.Sprintf("Hi %s,\n\n%s\n\nView your bookings: %s/bookings", info.Name, body, d.appURL),
		},
		SentAt: time.Now(),
	}
	if err := d.enqueue(TaskBookingEmail, payload, QueueEmails); err != nil {
		log.Printf("[notify][ERROR] booking %s %s: email: %v", r.ID, event, err)
	}

	if sms && info.Phone != "" {
		smsPayload := BookingSMSPayload{ReservationID: r.ID, Event: event, To: info.Phone, Body: "ServiceHub: " + body, SentAt: time.Now()}
		if err := d.enqueue(TaskBookingSMS, smsPayload, QueueAlerts); err != nil {
			log.Printf("[notify][ERROR] booking %s %s: sms: %v", r.ID, event, err)
		}
	}
}

// AdminAlert emails every admin and drops the alert in their inbox.
func (d *Dispatcher) AdminAlert(ctx context.Context, severity, message string) error {
	admins, err := d.accounts.List(ctx, account.RoleAdmin)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		log.Printf("[notify] admin alert (%s) with no admins to notify: %s", severity, message)
		return nil
	}
	for _, a := range admins {
		info := a.Info()
		env := EmailEnvelope{To: info.Email, Subject: "Admin Alert [" + severity + "]", Body: message}
		payload := AdminAlertPayload{AdminID: info.ID, Severity: severity, Message: message, Envelope: env, SentAt: time.Now()}
		if err := d.enqueue(TaskAdminAlert, payload, QueueAlerts); err != nil {
			return err
		}
		if d.inbox != nil {
			n := Notification{UserID: info.ID, Type: "admin_alert", Title: "Admin alert: " + severity, Body: message}
			if err := d.inbox.Create(ctx, n); err != nil {
				log.Printf("[notify][ERROR] admin alert inbox for %s: %v", info.ID, err)
			}
		}
	}
	return nil
}
