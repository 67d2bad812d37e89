package port

import "context"

// MailMessage is an outbound email handed to the delivery collaborator.
type MailMessage struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages out of band. Delivery failure is non-fatal to the
// operation that requested it; the caller surfaces a warning and continues.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}
