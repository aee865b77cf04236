package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aussiebroadwan/vault/internal/vault/domain"
	"github.com/aussiebroadwan/vault/internal/vault/store"
)

type securityConfigsRepo struct {
	db *sql.DB
}

const selectSecurityConfig = `
SELECT id, user_id, primary_method, password_hash, pin_hash, pattern_hash,
       biometric_enabled, biometric_credentials,
       challenge_kind, challenge_value, challenge_session, challenge_expires_at,
       security_questions, security_questions_updated_at,
       reset_token_hash, reset_method, reset_expires_at,
       last_verified_at, created_at, updated_at, version
FROM security_configs`

func (r *securityConfigsRepo) Create(ctx context.Context, cfg domain.SecurityConfig) error {
	row, err := toRow(cfg)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO security_configs (
    id, user_id, primary_method, password_hash, pin_hash, pattern_hash,
    biometric_enabled, biometric_credentials,
    challenge_kind, challenge_value, challenge_session, challenge_expires_at,
    security_questions, security_questions_updated_at,
    reset_token_hash, reset_method, reset_expires_at,
    last_verified_at, created_at, updated_at, version
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
ON CONFLICT(user_id) DO NOTHING`,
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

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *securityConfigsRepo) GetByUserID(ctx context.Context, userID string) (domain.SecurityConfig, error) {
	var row securityConfigRow
	err := r.db.QueryRowContext(ctx, selectSecurityConfig+` WHERE user_id = ?`, userID).Scan(
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

	res, err := r.db.ExecContext(ctx, `
UPDATE security_configs SET
    primary_method = ?, password_hash = ?, pin_hash = ?, pattern_hash = ?,
    biometric_enabled = ?, biometric_credentials = ?,
    challenge_kind = ?, challenge_value = ?, challenge_session = ?, challenge_expires_at = ?,
    security_questions = ?, security_questions_updated_at = ?,
    reset_token_hash = ?, reset_method = ?, reset_expires_at = ?,
    last_verified_at = ?, updated_at = ?, version = version + 1
WHERE user_id = ? AND version = ?`,
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

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Nothing matched: tell a missing row apart from a stale version.
	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM security_configs WHERE user_id = ?`, cfg.UserID).Scan(&exists)
	if err != nil {
		return mapNotFound(err)
	}
	return store.ErrConflict
}

func (r *securityConfigsRepo) TouchVerified(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE security_configs
SET last_verified_at = ?, updated_at = ?, version = version + 1
WHERE user_id = ?`, toMillis(at), toMillis(at), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *securityConfigsRepo) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE security_configs
SET reset_token_hash = NULL, reset_method = NULL, reset_expires_at = NULL,
    updated_at = ?, version = version + 1
WHERE reset_expires_at IS NOT NULL AND reset_expires_at <= ?`, toMillis(now), toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *securityConfigsRepo) ClearExpiredChallenges(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE security_configs
SET challenge_kind = NULL, challenge_value = NULL, challenge_session = NULL, challenge_expires_at = NULL,
    updated_at = ?, version = version + 1
WHERE challenge_expires_at IS NOT NULL AND challenge_expires_at <= ?`, toMillis(now), toMillis(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// securityConfigRow is the column layout of security_configs.
type securityConfigRow struct {
	ID                 string
	UserID             string
	Primary            string
	PasswordHash       sql.NullString
	PINHash            sql.NullString
	PatternHash        sql.NullString
	BiometricEnabled   bool
	Credentials        string
	ChallengeKind      sql.NullString
	ChallengeValue     sql.NullString
	ChallengeSession   []byte
	ChallengeExpiresAt sql.NullInt64
	Questions          string
	QuestionsUpdatedAt sql.NullInt64
	ResetHash          sql.NullString
	ResetMethod        sql.NullString
	ResetExpiresAt     sql.NullInt64
	LastVerifiedAt     sql.NullInt64
	CreatedAt          int64
	UpdatedAt          int64
	Version            int64
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
		PasswordHash:       mapStringNull(cfg.PasswordHash),
		PINHash:            mapStringNull(cfg.PINHash),
		PatternHash:        mapStringNull(cfg.PatternHash),
		BiometricEnabled:   cfg.BiometricEnabled,
		Credentials:        string(credsJSON),
		Questions:          string(questionsJSON),
		QuestionsUpdatedAt: mapOptionalTime(cfg.SecurityQuestionsUpdatedAt),
		LastVerifiedAt:     mapOptionalTime(cfg.LastVerifiedAt),
		CreatedAt:          toMillis(cfg.CreatedAt),
		UpdatedAt:          toMillis(cfg.UpdatedAt),
		Version:            cfg.Version,
	}

	if c := cfg.Challenge; c != nil {
		row.ChallengeKind = mapStringNull(string(c.Kind))
		row.ChallengeValue = mapStringNull(c.Value)
		row.ChallengeSession = c.Session
		row.ChallengeExpiresAt = mapOptionalTime(&c.ExpiresAt)
	}
	if t := cfg.Reset; t != nil {
		row.ResetHash = mapStringNull(t.Hash)
		row.ResetMethod = mapStringNull(string(t.Method))
		row.ResetExpiresAt = mapOptionalTime(&t.ExpiresAt)
	}
	return row, nil
}

func (row securityConfigRow) toDomain() (domain.SecurityConfig, error) {
	cfg := domain.SecurityConfig{
		ID:                         row.ID,
		UserID:                     row.UserID,
		Primary:                    domain.Method(row.Primary),
		PasswordHash:               row.PasswordHash.String,
		PINHash:                    row.PINHash.String,
		PatternHash:                row.PatternHash.String,
		BiometricEnabled:           row.BiometricEnabled,
		SecurityQuestionsUpdatedAt: mapNullTimePtr(row.QuestionsUpdatedAt),
		LastVerifiedAt:             mapNullTimePtr(row.LastVerifiedAt),
		CreatedAt:                  fromMillis(row.CreatedAt),
		UpdatedAt:                  fromMillis(row.UpdatedAt),
		Version:                    row.Version,
	}

	if err := json.Unmarshal([]byte(row.Credentials), &cfg.BiometricCredentials); err != nil {
		return domain.SecurityConfig{}, fmt.Errorf("failed to decode biometric credentials: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Questions), &cfg.SecurityQuestions); err != nil {
		return domain.SecurityConfig{}, fmt.Errorf("failed to decode security questions: %w", err)
	}
	if len(cfg.BiometricCredentials) == 0 {
		cfg.BiometricCredentials = nil
	}
	if len(cfg.SecurityQuestions) == 0 {
		cfg.SecurityQuestions = nil
	}

	if row.ChallengeValue.Valid && row.ChallengeExpiresAt.Valid {
		cfg.Challenge = &domain.Challenge{
			Kind:      domain.ChallengeKind(row.ChallengeKind.String),
			Value:     row.ChallengeValue.String,
			Session:   row.ChallengeSession,
			ExpiresAt: fromMillis(row.ChallengeExpiresAt.Int64),
		}
	}
	if row.ResetHash.Valid && row.ResetExpiresAt.Valid {
		cfg.Reset = &domain.ResetToken{
			Hash:      row.ResetHash.String,
			Method:    domain.Method(row.ResetMethod.String),
			ExpiresAt: fromMillis(row.ResetExpiresAt.Int64),
		}
	}
	return cfg, nil
}
