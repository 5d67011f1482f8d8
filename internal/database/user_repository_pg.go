package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

// pgUserRepository は Postgres 直接続の UserRepository 実装です。
type pgUserRepository struct {
	db *sql.DB
}

// NewPgUserRepository は Postgres 直接続のリポジトリを作成します。
func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

// CreateUser は新しいユーザープロファイルを作成します。
func (r *pgUserRepository) CreateUser(profile models.UserProfile) (*models.UserProfile, error) {
	now := time.Now().UTC()
	_, err := r.db.Exec(
		`INSERT INTO user_profiles (id, email, display_name, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		profile.UID, profile.Email, profile.DisplayName, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("ユーザープロファイルの挿入に失敗しました: %w", err)
	}

	profile.CreatedAt = now
	profile.UpdatedAt = now
	return &profile, nil
}

// GetUser は uid でユーザープロファイルを取得します。存在しない場合は ErrUserNotFound。
func (r *pgUserRepository) GetUser(uid string) (*models.UserProfile, error) {
	var profile models.UserProfile
	var createdAt, updatedAt sql.NullTime
	err := r.db.QueryRow(
		`SELECT id, email, display_name, created_at, updated_at FROM user_profiles WHERE id = $1`, uid,
	).Scan(&profile.UID, &profile.Email, &profile.DisplayName, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ユーザープロファイルの取得に失敗しました: %w", err)
	}
	if createdAt.Valid {
		profile.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		profile.UpdatedAt = updatedAt.Time
	}
	return &profile, nil
}

// 部分更新で受け付けるカラム。
var updatableUserColumns = map[string]bool{
	"email":        true,
	"display_name": true,
}

// UpdateUser は部分更新を行い、updated_at を更新します。
func (r *pgUserRepository) UpdateUser(uid string, patch map[string]interface{}) error {
	setParts := []string{}
	args := []interface{}{}
	idx := 1
	for col, val := range patch {
		if !updatableUserColumns[col] {
			continue
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, uid)

	query := fmt.Sprintf("UPDATE user_profiles SET %s WHERE id = $%d", strings.Join(setParts, ", "), idx)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("ユーザープロファイルの更新に失敗しました: %w", err)
	}
	return nil
}
