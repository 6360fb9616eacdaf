// Package mailtest provides a recording mail.Dispatcher for tests.
package mailtest

import (
	"context"
	"sync"

	"github.com/MrEthical07/tenantAuth/mail"
)

// Recorder stores every message it is asked to send. When Err is set each
// send records the message and then fails with Err.
type Recorder struct {
	mu       sync.Mutex
	messages []mail.Message
	Err      error
}

var _ mail.Dispatcher = (*Recorder)(nil)

func (r *Recorder) record(msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
	return r.Err
}

func (r *Recorder) SendVerificationEmail(_ context.Context, to, name, token string) error {
	return r.record(mail.Message{Kind: mail.KindVerification, To: to, Name: name, Token: token})
}

func (r *Recorder) SendPasswordResetEmail(_ context.Context, to, name, token string) error {
	return r.record(mail.Message{Kind: mail.KindPasswordReset, To: to, Name: name, Token: token})
}

func (r *Recorder) SendWelcomeEmail(_ context.Context, to, name string) error {
	return r.record(mail.Message{Kind: mail.KindWelcome, To: to, Name: name})
}

func (r *Recorder) SendSecurityAlertEmail(_ context.Context, to, name, ip, userAgent string) error {
	return r.record(mail.Message{Kind: mail.KindSecurityAlert, To: to, Name: name, IP: ip, UserAgent: userAgent})
}

// Messages returns a copy of everything recorded so far.
func (r *Recorder) Messages() []mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]mail.Message(nil), r.messages...)
}

// Last returns the most recent message of kind.
func (r *Recorder) Last(kind mail.Kind) (mail.Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.messages) - 1; i >= 0; i-- {
		if r.messages[i].Kind == kind {
			return r.messages[i], true
		}
	}
	return mail.Message{}, false
}

// Count returns how many messages of kind were recorded.
func (r *Recorder) Count(kind mail.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.messages {
		if m.Kind == kind {
			n++
		}
	}
	return n
}
