package models

import "time"

// UserProfile は user_profiles テーブルのレコードに対応する構造体です。
// 認証アイデンティティ1つにつき1件、サインアップ時に作成されます。
type UserProfile struct {
	UID         string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthSession はサインイン/サインアップ成功時にクライアントへ返すセッション情報です。
type AuthSession struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	User         UserProfile `json:"user"`
}
