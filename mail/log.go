package mail

import (
	"context"

	"go.uber.org/zap"
)

// LogDispatcher writes a log line per email instead of sending it. Token
// values are never logged.
type LogDispatcher struct {
	logger *zap.Logger
}

func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogDispatcher{logger: logger.Named("mail")}
}

func (d *LogDispatcher) log(msg Message) {
	fields := []zap.Field{
		zap.String("kind", string(msg.Kind)),
		zap.String("to", msg.To),
		zap.String("subject", msg.Kind.Subject()),
	}
	if msg.Token != "" {
		fields = append(fields, zap.Int("token_len", len(msg.Token)))
	}
	if msg.IP != "" {
		fields = append(fields, zap.String("ip", msg.IP), zap.String("user_agent", msg.UserAgent))
	}
	d.logger.Info("email dispatched", fields...)
}

func (d *LogDispatcher) SendVerificationEmail(_ context.Context, to, name, token string) error {
	d.log(Message{Kind: KindVerification, To: to, Name: name, Token: token})
	return nil
}

func (d *LogDispatcher) SendPasswordResetEmail(_ context.Context, to, name, token string) error {
	d.log(Message{Kind: KindPasswordReset, To: to, Name: name, Token: token})
	return nil
}

func (d *LogDispatcher) SendWelcomeEmail(_ context.Context, to, name string) error {
	d.log(Message{Kind: KindWelcome, To: to, Name: name})
	return nil
}

func (d *LogDispatcher) SendSecurityAlertEmail(_ context.Context, to, name, ip, userAgent string) error {
	d.log(Message{Kind: KindSecurityAlert, To: to, Name: name, IP: ip, UserAgent: userAgent})
	return nil
}
