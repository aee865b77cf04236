package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

type securityConfigsRepo struct {
	pool *pgxpool.Pool
}

func (r *securityConfigsRepo) Create(ctx context.Context, cfg domain.SecurityConfig) error {
	row, err := toRow(cfg)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
INSERT INTO security_configs (
    id, user_id, primary_method, password_hash, pin_hash, pattern_hash,
    biometric_enabled, biometric_credentials,
    challenge_kind, challenge_value, challenge_session, challenge_expires_at,
    security_questions, security_questions_updated_at,
    reset_token_hash, reset_method, reset_expires_at,
    last_verified_at, created_at, updated_at, version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, 1)
ON CONFLICT (user_id) DO NOTHING`,
		row.ID, row.UserID, row.Primary, row.PasswordHash, row.PINHash, row.PatternHash,
		row.BiometricEnabled, row.Credentials,
		row.ChallengeKind, row.ChallengeValue, row.ChallengeSession, row.ChallengeExpiresAt,
		row.Questions, row.QuestionsUpdatedAt,
		row.ResetHash, row.ResetMethod, row.ResetExpiresAt,
		row.LastVerifiedAt, row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *securityConfigsRepo) GetByUserID(ctx context.Context, userID string) (domain.SecurityConfig, error) {
	var row securityConfigRow
	err := r.pool.QueryRow(ctx, `
SELECT id, user_id, primary_method, password_hash, pin_hash, pattern_hash,
       biometric_enabled, biometric_credentials,
       challenge_kind, challenge_value, challenge_session, challenge_expires_at,
       security_questions, security_questions_updated_at,
       reset_token_hash, reset_method, reset_expires_at,
       last_verified_at, created_at, updated_at, version
FROM security_configs WHERE user_id = $1`, userID).Scan(
		&row.ID, &row.UserID, &row.Primary, &row.PasswordHash, &row.PINHash, &row.PatternHash,
		&row.BiometricEnabled, &row.Credentials,
		&row.ChallengeKind, &row.ChallengeValue, &row.ChallengeSession, &row.ChallengeExpiresAt,
		&row.Questions, &row.QuestionsUpdatedAt,
		&row.ResetHash, &row.ResetMethod, &row.ResetExpiresAt,
		&row.LastVerifiedAt, &row.CreatedAt, &row.UpdatedAt, &row.Version,
	)
	if err != nil {
		return domain.SecurityConfig{}, mapNotFound(err)
	}
	return row.toDomain()
}

func (r *securityConfigsRepo) Update(ctx context.Context, cfg domain.SecurityConfig) error {
	row, err := toRow(cfg)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE security_configs SET
    primary_method = $1, password_hash = $2, pin_hash = $3, pattern_hash = $4,
    biometric_enabled = $5, biometric_credentials = $6,
    challenge_kind = $7, challenge_value = $8, challenge_session = $9, challenge_expires_at = $10,
    security_questions = $11, security_questions_updated_at = $12,
    reset_token_hash = $13, reset_method = $14, reset_expires_at = $15,
    last_verified_at = $16, updated_at = $17, version = version + 1
WHERE user_id = $18 AND version = $19`,
		row.Primary, row.PasswordHash, row.PINHash, row.PatternHash,
		row.BiometricEnabled, row.Credentials,
		row.ChallengeKind, row.ChallengeValue, row.ChallengeSession, row.ChallengeExpiresAt,
		row.Questions, row.QuestionsUpdatedAt,
		row.ResetHash, row.ResetMethod, row.ResetExpiresAt,
		row.LastVerifiedAt, row.UpdatedAt,
		row.UserID, cfg.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM security_configs WHERE user_id = $1)`, cfg.UserID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (r *securityConfigsRepo) TouchVerified(ctx context.Context, userID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE security_configs
SET last_verified_at = $1, updated_at = $1, version = version + 1
WHERE user_id = $2`, at.UTC(), userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *securityConfigsRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE security_configs
SET reset_token_hash = NULL, reset_method = NULL, reset_expires_at = NULL,
    updated_at = $1, version = version + 1
WHERE reset_expires_at IS NOT NULL AND reset_expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *securityConfigsRepo) ClearExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE security_configs
SET challenge_kind = NULL, challenge_value = NULL, challenge_session = NULL, challenge_expires_at = NULL,
    updated_at = $1, version = version + 1
WHERE challenge_expires_at IS NOT NULL AND challenge_expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type securityConfigRow struct {
	ID                 string
	UserID             string
	Primary            string
	PasswordHash       *string
	PINHash            *string
	PatternHash        *string
	BiometricEnabled   bool
	Credentials        []byte
	ChallengeKind      *string
	ChallengeValue     *string
	ChallengeSession   []byte
	ChallengeExpiresAt *time.Time
	Questions          []byte
	QuestionsUpdatedAt *time.Time
	ResetHash          *string
	ResetMethod        *string
	ResetExpiresAt     *time.Time
	LastVerifiedAt     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Version            int64
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func toRow(cfg domain.SecurityConfig) (securityConfigRow, error) {
	creds := cfg.BiometricCredentials
	if creds == nil {
		creds = []domain.BiometricCredential{}
	}
	credsJSON, err := json.Marshal(creds)
	if err != nil {
		return securityConfigRow{}, fmt.Errorf("failed to encode biometric credentials: %w", err)
	}

	questions := cfg.SecurityQuestions
	if questions == nil {
		questions = []domain.SecurityQuestion{}
	}
	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return securityConfigRow{}, fmt.Errorf("failed to encode security questions: %w", err)
	}

	row := securityConfigRow{
		ID:                 cfg.ID,
		UserID:             cfg.UserID,
		Primary:            string(cfg.Primary),
		PasswordHash:       optional(cfg.PasswordHash),
		PINHash:            optional(cfg.PINHash),
		PatternHash:        optional(cfg.PatternHash),
		BiometricEnabled:   cfg.BiometricEnabled,
		Credentials:        credsJSON,
		Questions:          questionsJSON,
		QuestionsUpdatedAt: utcPtr(cfg.SecurityQuestionsUpdatedAt),
		LastVerifiedAt:     utcPtr(cfg.LastVerifiedAt),
		CreatedAt:          cfg.CreatedAt.UTC(),
		UpdatedAt:          cfg.UpdatedAt.UTC(),
		Version:            cfg.Version,
	}

	if c := cfg.Challenge; c != nil {
		row.ChallengeKind = optional(string(c.Kind))
		row.ChallengeValue = optional(c.Value)
		row.ChallengeSession = c.Session
		row.ChallengeExpiresAt = utcPtr(&c.ExpiresAt)
	}
	if t := cfg.Reset; t != nil {
		row.ResetHash = optional(t.Hash)
		row.ResetMethod = optional(string(t.Method))
		row.ResetExpiresAt = utcPtr(&t.ExpiresAt)
	}
	return row, nil
}

func (row securityConfigRow) toDomain() (domain.SecurityConfig, error) {
	cfg := domain.SecurityConfig{
		ID:                         row.ID,
		UserID:                     row.UserID,
		Primary:                    domain.Method(row.Primary),
		PasswordHash:               deref(row.PasswordHash),
		PINHash:                    deref(row.PINHash),
		PatternHash:                deref(row.PatternHash),
		BiometricEnabled:           row.BiometricEnabled,
		SecurityQuestionsUpdatedAt: utcPtr(row.QuestionsUpdatedAt),
		LastVerifiedAt:             utcPtr(row.LastVerifiedAt),
		CreatedAt:                  row.CreatedAt.UTC(),
		UpdatedAt:                  row.UpdatedAt.UTC(),
		Version:                    row.Version,
	}

	if err := json.Unmarshal(row.Credentials, &cfg.BiometricCredentials); err != nil {
		return domain.SecurityConfig{}, fmt.Errorf("failed to decode biometric credentials: %w", err)
	}
	if err := json.Unmarshal(row.Questions, &cfg.SecurityQuestions); err != nil {
		return domain.SecurityConfig{}, fmt.Errorf("failed to decode security questions: %w", err)
	}
	if len(cfg.BiometricCredentials) == 0 {
		cfg.BiometricCredentials = nil
	}
	if len(cfg.SecurityQuestions) == 0 {
		cfg.SecurityQuestions = nil
	}

	if row.ChallengeValue != nil && row.ChallengeExpiresAt != nil {
		cfg.Challenge = &domain.Challenge{
			Kind:      domain.ChallengeKind(deref(row.ChallengeKind)),
			Value:     *row.ChallengeValue,
			Session:   row.ChallengeSession,
			ExpiresAt: row.ChallengeExpiresAt.UTC(),
		}
	}
	if row.ResetHash != nil && row.ResetExpiresAt != nil {
		cfg.Reset = &domain.ResetToken{
			Hash:      *row.ResetHash,
			Method:    domain.Method(deref(row.ResetMethod)),
			ExpiresAt: row.ResetExpiresAt.UTC(),
		}
	}
	return cfg, nil
}
