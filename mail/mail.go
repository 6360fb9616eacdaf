package mail

import (
	"context"
	"fmt"
)

// Kind identifies the purpose of an outgoing email.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
	KindWelcome       Kind = "welcome"
	KindSecurityAlert Kind = "security_alert"
)

// Subject returns the subject line for kind.
func (k Kind) Subject() string {
	switch k {
	case KindVerification:
		return "Verify your email address"
	case KindPasswordReset:
		return "Reset your password"
	case KindWelcome:
		return "Welcome"
	case KindSecurityAlert:
		return "Security alert: new login detected"
	}
	return string(k)
}

// Dispatcher sends account emails.
type Dispatcher interface {
	SendVerificationEmail(ctx context.Context, to, name, token string) error
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error
	SendWelcomeEmail(ctx context.Context, to, name string) error
	SendSecurityAlertEmail(ctx context.Context, to, name, ip, userAgent string) error
}

// Message is the queued form of a Dispatcher call.
type Message struct {
	Kind      Kind
	To        string
	Name      string
	Token     string
	IP        string
	UserAgent string
}

// Deliver replays msg against d.
func Deliver(ctx context.Context, d Dispatcher, msg Message) error {
	switch msg.Kind {
	case KindVerification:
		return d.SendVerificationEmail(ctx, msg.To, msg.Name, msg.Token)
	case KindPasswordReset:
		return d.SendPasswordResetEmail(ctx, msg.To, msg.Name, msg.Token)
	case KindWelcome:
		return d.SendWelcomeEmail(ctx, msg.To, msg.Name)
	case KindSecurityAlert:
		return d.SendSecurityAlertEmail(ctx, msg.To, msg.Name, msg.IP, msg.UserAgent)
	}
	return fmt.Errorf("mail: unknown message kind %q", msg.Kind)
}

// Nop discards every email.
type Nop struct{}

func (Nop) SendVerificationEmail(context.Context, string, string, string) error { return nil }
func (Nop) SendPasswordResetEmail(context.Context, string, string, string) error { return nil }
func (Nop) SendWelcomeEmail(context.Context, string, string) error { return nil }
func (Nop) SendSecurityAlertEmail(context.Context, string, string, string, string) error {
	return nil
}
