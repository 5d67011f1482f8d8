package auth

import (
	"fmt"
	"log"
	"time"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

// Service は GoTrue をラップする認証サービスです。
// サインアップ/サインイン/サインアウトと現在ユーザーの取得を提供し、
// セッション変化を SessionBroker 経由で配信します。
type Service struct {
	auth   gotrue.Client
	users  database.UserRepository
	broker *SessionBroker
}

// NewService は新しい認証サービスを作成します。
func NewService(authClient gotrue.Client, users database.UserRepository) *Service {
	return &Service{
		auth:   authClient,
		users:  users,
		broker: NewSessionBroker(),
	}
}

// Events はセッション変化のブローカーを返します。
func (s *Service) Events() *SessionBroker {
	return s.broker
}

// SignUp は認証アイデンティティとユーザープロファイルを作成し、セッションを返します。
//
// アイデンティティ作成後にプロファイル作成が失敗した場合、孤児となった
// アイデンティティが残ります。この不整合ウィンドウは許容し、自動回復は行いません。
func (s *Service) SignUp(email, password, displayName string) (*models.AuthSession, error) {
	resp, err := s.auth.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
		Data: map[string]interface{}{
			"display_name": displayName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("サインアップに失敗しました: %w", err)
	}

	uid := resp.ID.String()
	now := time.Now().UTC()
	if _, err := s.users.CreateUser(models.UserProfile{
		UID:         uid,
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		// アイデンティティは作成済み。孤児IDが残るがここでは回復しない
		log.Printf("AuthService: ユーザー %s のプロファイル作成に失敗しました（孤児アイデンティティが残ります）: %v", uid, err)
		return nil, fmt.Errorf("ユーザープロファイルの作成に失敗しました: %w", err)
	}

	// メール確認が無効な環境ではそのままサインインしてセッションを返す
	return s.SignIn(email, password)
}

// SignIn はメールアドレスとパスワードでサインインし、セッションを返します。
// 成功時に signed_in イベントを配信します。
func (s *Service) SignIn(email, password string) (*models.AuthSession, error) {
	token, err := s.auth.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, fmt.Errorf("サインインに失敗しました: %w", err)
	}

	uid := token.User.ID.String()
	profile := s.lookupProfile(uid, token.User)

	s.broker.Publish(SessionEvent{Type: SessionSignedIn, UserID: uid})

	return &models.AuthSession{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
		User:         profile,
	}, nil
}

// SignOut は現在のセッションを破棄し、signed_out イベントを配信します。
func (s *Service) SignOut(accessToken, userID string) error {
	if err := s.auth.WithToken(accessToken).Logout(); err != nil {
		return fmt.Errorf("サインアウトに失敗しました: %w", err)
	}
	s.broker.Publish(SessionEvent{Type: SessionSignedOut, UserID: userID})
	return nil
}

// CurrentUser はアクセストークンに対応するユーザープロファイルを返します。
func (s *Service) CurrentUser(accessToken string) (*models.UserProfile, error) {
	resp, err := s.auth.WithToken(accessToken).GetUser()
	if err != nil {
		return nil, fmt.Errorf("現在のユーザーの取得に失敗しました: %w", err)
	}
	profile := s.lookupProfile(resp.ID.String(), resp.User)
	return &profile, nil
}

// lookupProfile はプロファイルレコードを優先し、なければ GoTrue のユーザー情報から
// プロファイルビューを組み立てます。
func (s *Service) lookupProfile(uid string, user types.User) models.UserProfile {
	if stored, err := s.users.GetUser(uid); err == nil {
		return *stored
	}

	displayName := ""
	if v, ok := user.UserMetadata["display_name"].(string); ok {
		displayName = v
	}
	return models.UserProfile{
		UID:         uid,
		Email:       user.Email,
		DisplayName: displayName,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}
