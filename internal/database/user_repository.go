package database

import (
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

// usersTable はユーザープロファイルを保存するテーブル名です。
const usersTable = "user_profiles"

// UserRepository はユーザープロファイルのストア操作を定義するインターフェースです。
// キーは認証アイデンティティの uid です。
type UserRepository interface {
	CreateUser(profile models.UserProfile) (*models.UserProfile, error)
	GetUser(uid string) (*models.UserProfile, error)
	UpdateUser(uid string, patch map[string]interface{}) error
}

// supabaseUserRepository は PostgREST 経由の UserRepository 実装です。
type supabaseUserRepository struct {
	client *supabase.Client
}

// NewSupabaseUserRepository は PostgREST 経由のリポジトリを作成します。
func NewSupabaseUserRepository(client *supabase.Client) UserRepository {
	return &supabaseUserRepository{client: client}
}

// CreateUser は新しいユーザープロファイルを作成します。
func (r *supabaseUserRepository) CreateUser(profile models.UserProfile) (*models.UserProfile, error) {
	now := time.Now().UTC()
	payload := map[string]interface{}{
		"id":           profile.UID,
		"email":        profile.Email,
		"display_name": profile.DisplayName,
		"created_at":   now,
		"updated_at":   now,
	}

	var created []models.UserProfile
	_, err := r.client.From(usersTable).
		Insert(payload, false, "", "representation", "").
		ExecuteTo(&created)
	if err != nil {
		return nil, fmt.Errorf("ユーザープロファイルの作成に失敗しました: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("ユーザープロファイルの作成結果が返されませんでした")
	}
	return &created[0], nil
}

// GetUser は uid でユーザープロファイルを取得します。存在しない場合は ErrUserNotFound。
func (r *supabaseUserRepository) GetUser(uid string) (*models.UserProfile, error) {
	var profiles []models.UserProfile
	_, err := r.client.From(usersTable).
		Select("*", "", false).
		Eq("id", uid).
		ExecuteTo(&profiles)
	if err != nil {
		return nil, fmt.Errorf("ユーザープロファイルの取得に失敗しました: %w", err)
	}
	if len(profiles) == 0 {
		return nil, ErrUserNotFound
	}
	return &profiles[0], nil
}

// UpdateUser は部分更新を行い、updated_at を更新します。
func (r *supabaseUserRepository) UpdateUser(uid string, patch map[string]interface{}) error {
	payload := make(map[string]interface{}, len(patch)+1)
	for k, v := range patch {
		payload[k] = v
	}
	payload["updated_at"] = time.Now().UTC()

	_, _, err := r.client.From(usersTable).
		Update(payload, "", "").
		Eq("id", uid).
		Execute()
	if err != nil {
		return fmt.Errorf("ユーザープロファイルの更新に失敗しました: %w", err)
	}
	return nil
}
