package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail  = "email:welcome"
	TaskPasswordReset = "email:password_reset"
	TaskBookingEmail  = "email:booking_update"
	TaskBookingSMS    = "sms:booking_update"
	TaskAdminAlert    = "email:admin_alert"
)

// Queues served by the worker.
const (
	QueueEmails = "emails"
	QueueAlerts = "alerts"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Password reset payload
type PasswordResetPayload struct {
	UserID    string        `json:"user_id"`
	ResetURL  string        `json:"reset_url"`
	Envelope  EmailEnvelope `json:"envelope"`
	Requested time.Time     `json:"requested"`
}

// BookingEmailPayload tells one party about a reservation event.
type BookingEmailPayload struct {
	ReservationID string        `json:"reservation_id"`
	Event         string        `json:"event"` // created|accepted|rejected|completed
	UserID        string        `json:"user_id"`
	Envelope      EmailEnvelope `json:"envelope"`
	SentAt        time.Time     `json:"sent_at"`
}

// BookingSMSPayload is the text message counterpart of BookingEmailPayload.
type BookingSMSPayload struct {
	ReservationID string    `json:"reservation_id"`
	Event         string    `json:"event"`
	To            string    `json:"to"`
	Body          string    `json:"body"`
	SentAt        time.Time `json:"sent_at"`
}

// Admin alert payload
type AdminAlertPayload struct {
	AdminID  string        `json:"admin_id"`
	Severity string        `json:"severity"` // info|warning|critical
	Message  string        `json:"message"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}
