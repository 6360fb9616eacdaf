package tenantAuth

import "time"

// SecurityReport summarizes the security-relevant settings an Engine was
// built with. It never includes key material.
type SecurityReport struct {
	SigningAlgorithm        string
	AccessTTL               time.Duration
	RefreshTTL              time.Duration
	VerificationTTL         time.Duration
	ResetTTL                time.Duration
	PasswordAlgorithm       string
	Argon2                  PasswordConfigReport
	BCryptCost              int
	HashUpgradeOnLogin      bool
	RateLimitingActive      bool
	NewLocationAlerts       bool
	AuditEnabled            bool
	AuditDropsWhenFull      bool
	SharedRevocationBackend bool
}

type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	return SecurityReport{
		SigningAlgorithm:  e.config.JWT.SigningMethod,
		AccessTTL:         e.config.JWT.AccessTTL,
		RefreshTTL:        e.config.Session.RefreshTTL,
		VerificationTTL:   e.config.OneTime.VerificationTTL,
		ResetTTL:          e.config.OneTime.ResetTTL,
		PasswordAlgorithm: e.config.Password.Algorithm,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		BCryptCost:              e.config.Password.BCryptCost,
		HashUpgradeOnLogin:      e.config.Password.UpgradeOnLogin,
		RateLimitingActive:      e.config.RateLimit.Enabled,
		NewLocationAlerts:       e.config.Login.NotifyNewLocation,
		AuditEnabled:            e.audit != nil,
		AuditDropsWhenFull:      e.audit != nil && e.config.Audit.DropIfFull,
		SharedRevocationBackend: e.ownedKV == nil,
	}
}
