package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/unifeed/internal/model"
)

// PostgresCredentialRepo はPostgreSQLを使用したクレデンシャルリポジトリ。
type PostgresCredentialRepo struct {
	db *sql.DB
}

// NewPostgresCredentialRepo はPostgresCredentialRepoを生成する。
func NewPostgresCredentialRepo(db *sql.DB) *PostgresCredentialRepo {
	return &PostgresCredentialRepo{db: db}
}

const credentialColumns = `id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, created_at, updated_at`

func scanCredential(row *sql.Row) (*model.Credential, error) {
	cred := &model.Credential{}
	err := row.Scan(
		&cred.ID, &cred.UserID, &cred.Provider, &cred.ProviderAccountID,
		&cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt,
		&cred.CreatedAt, &cred.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cred, nil
}

// FindByUserAndProvider はユーザーIDとプラットフォームでクレデンシャルを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresCredentialRepo) FindByUserAndProvider(ctx context.Context, userID string, provider model.Platform) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find credential by user and provider: %w", err)
	}
	return cred, nil
}

// FindByProviderAccount はプラットフォームと外部アカウントIDでクレデンシャルを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresCredentialRepo) FindByProviderAccount(ctx context.Context, provider model.Platform, providerAccountID string) (*model.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	)
	cred, err := scanCredential(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find credential by provider account: %w", err)
	}
	return cred, nil
}

// ListByUserID はユーザーの全クレデンシャルを返す。
func (r *PostgresCredentialRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Credential, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = $1 ORDER BY provider`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var creds []*model.Credential
	for rows.Next() {
		cred := &model.Credential{}
		err := rows.Scan(
			&cred.ID, &cred.UserID, &cred.Provider, &cred.ProviderAccountID,
			&cred.AccessToken, &cred.RefreshToken, &cred.ExpiresAt,
			&cred.CreatedAt, &cred.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credentials: %w", err)
	}

	return creds, nil
}

// Create はクレデンシャルを作成する。
func (r *PostgresCredentialRepo) Create(ctx context.Context, credential *model.Credential) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, user_id, provider, provider_account_id, access_token, refresh_token, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		credential.ID, credential.UserID, credential.Provider, credential.ProviderAccountID,
		credential.AccessToken, credential.RefreshToken, credential.ExpiresAt,
		credential.CreatedAt, credential.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert credential: %w", err)
	}
	return nil
}

// UpdateTokens はトークンを部分更新する。
// refreshTokenが空文字列の場合、expiresAtがnilの場合は既存の値を維持する。
// 更新された行数を返す。クレデンシャルが既に削除されていた場合は0を返す。
func (r *PostgresCredentialRepo) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, expiresAt *time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE credentials
		 SET access_token = $2,
		     refresh_token = CASE WHEN $3 = '' THEN refresh_token ELSE $3 END,
		     expires_at = COALESCE($4, expires_at),
		     updated_at = now()
		 WHERE id = $1`,
		id, accessToken, refreshToken, expiresAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update credential tokens: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// DeleteByUserAndProvider はユーザーIDとプラットフォームでクレデンシャルを削除する。
// 削除された行数を返す。
func (r *PostgresCredentialRepo) DeleteByUserAndProvider(ctx context.Context, userID string, provider model.Platform) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM credentials WHERE user_id = $1 AND provider = $2`,
		userID, provider,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete credential: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

// compile-time interface check
var _ CredentialRepository = (*PostgresCredentialRepo)(nil)
