package http

import (
	"encoding/base64"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/pkg/vaultsdk"
)

func toView(cfg domain.SecurityConfig) vaultsdk.SecurityConfigView {
	creds := make([]vaultsdk.CredentialView, 0, len(cfg.BiometricCredentials))
	for _, c := range cfg.BiometricCredentials {
		creds = append(creds, vaultsdk.CredentialView{
			ID:         base64.RawURLEncoding.EncodeToString(c.ID),
			Transports: c.Transports,
			CreatedAt:  c.CreatedAt,
			LastUsedAt: c.LastUsedAt,
		})
	}

	questions := make([]string, 0, len(cfg.SecurityQuestions))
	for _, q := range cfg.SecurityQuestions {
		questions = append(questions, q.Question)
	}

	return vaultsdk.SecurityConfigView{
		UserID:                     cfg.UserID,
		PrimaryMethod:              cfg.Primary.String(),
		PasswordEnabled:            cfg.PrimaryEnabled(domain.MethodPassword),
		PINEnabled:                 cfg.PrimaryEnabled(domain.MethodPIN),
		PatternEnabled:             cfg.PrimaryEnabled(domain.MethodPattern),
		HasPassword:                cfg.PasswordHash != "",
		HasPIN:                     cfg.PINHash != "",
		HasPattern:                 cfg.PatternHash != "",
		BiometricEnabled:           cfg.BiometricEnabled,
		BiometricCredentials:       creds,
		SecurityQuestions:          questions,
		SecurityQuestionsUpdatedAt: cfg.SecurityQuestionsUpdatedAt,
		ResetPending:               cfg.Reset.Active(time.Now()),
		LastVerifiedAt:             cfg.LastVerifiedAt,
		CreatedAt:                  cfg.CreatedAt,
		UpdatedAt:                  cfg.UpdatedAt,
	}
}
