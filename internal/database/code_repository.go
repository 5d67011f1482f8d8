package database

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

var (
	// ErrCodeNotFound は指定IDのコードレコードが存在しない場合のエラーです。
	ErrCodeNotFound = errors.New("code record not found")
	// ErrUserNotFound は指定IDのユーザープロファイルが存在しない場合のエラーです。
	ErrUserNotFound = errors.New("user profile not found")
)

// codesTable はバックアップコードを保存するテーブル名です。
const codesTable = "codes"

// CodeRepository はコードレコードのストア操作を定義するインターフェースです。
//
// GetUserCodes はどんなバックエンド障害（権限エラー含む）でもエラーを返さず
// 空のスライスを返します。呼び出し側は「空」を「データなし」と「取得失敗」の
// どちらとも断定できない点に注意してください。
type CodeRepository interface {
	CreateCode(params models.CodeCreateParams) (*models.CodeRecord, error)
	GetUserCodes(userID string) []models.CodeRecord
	GetCode(id string) (*models.CodeRecord, error)
	UpdateCode(id string, patch map[string]interface{}) error
	MarkCodeAsUsed(id string) error
	DeleteCode(id string) error
}

// supabaseCodeRepository は PostgREST 経由の CodeRepository 実装です。
type supabaseCodeRepository struct {
	client *supabase.Client
}

// NewSupabaseCodeRepository は PostgREST 経由のリポジトリを作成します。
func NewSupabaseCodeRepository(client *supabase.Client) CodeRepository {
	return &supabaseCodeRepository{client: client}
}

// CreateCode は新しいコードレコードを作成します。IDとタイムスタンプはここで付与し、
// is_used は必ず false で開始します。既存IDを上書きすることはありません。
func (r *supabaseCodeRepository) CreateCode(params models.CodeCreateParams) (*models.CodeRecord, error) {
	now := time.Now().UTC()
	payload := map[string]interface{}{
		"user_id":                params.UserID,
		"code":                   params.Code,
		"description":            params.Description,
		"collection_name":        params.CollectionName,
		"collection_description": params.CollectionDescription,
		"is_used":                false,
		"created_at":             now,
		"updated_at":             now,
	}

	var created []models.CodeRecord
	_, err := r.client.From(codesTable).
		Insert(payload, false, "", "representation", "").
		ExecuteTo(&created)
	if err != nil {
		return nil, fmt.Errorf("コードレコードの作成に失敗しました: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("コードレコードの作成結果が返されませんでした")
	}
	return &created[0], nil
}

// GetUserCodes は指定ユーザーの全コードレコードを作成日時の降順で返します。
// タイムスタンプのないレコードは epoch 0 として末尾に並びます。
// 失敗した場合はログに残して空のスライスを返します（エラーは返しません）。
func (r *supabaseCodeRepository) GetUserCodes(userID string) []models.CodeRecord {
	var records []models.CodeRecord
	_, err := r.client.From(codesTable).
		Select("*", "", false).
		Eq("user_id", userID).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		ExecuteTo(&records)
	if err != nil {
		// 新規ユーザーの権限エラーもここに含まれるため、エラーにはせず空で返す
		log.Printf("CodeRepository: ユーザー %s のコード取得に失敗したため空のリストを返します: %v", userID, err)
		return []models.CodeRecord{}
	}

	sortCodesByCreatedAtDesc(records)
	return records
}

// GetCode は指定IDのコードレコードを取得します。存在しない場合は ErrCodeNotFound。
func (r *supabaseCodeRepository) GetCode(id string) (*models.CodeRecord, error) {
	var records []models.CodeRecord
	_, err := r.client.From(codesTable).
		Select("*", "", false).
		Eq("id", id).
		ExecuteTo(&records)
	if err != nil {
		return nil, fmt.Errorf("コードレコードの取得に失敗しました: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrCodeNotFound
	}
	return &records[0], nil
}

// UpdateCode は部分更新を行い、updated_at を更新します。
func (r *supabaseCodeRepository) UpdateCode(id string, patch map[string]interface{}) error {
	payload := make(map[string]interface{}, len(patch)+1)
	for k, v := range patch {
		payload[k] = v
	}
	payload["updated_at"] = time.Now().UTC()

	_, _, err := r.client.From(codesTable).
		Update(payload, "", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("コードレコードの更新に失敗しました: %w", err)
	}
	return nil
}

// MarkCodeAsUsed は is_used を true にします。現在の状態は確認しないため、
// 二重に呼ばれても害はありません（使用の一意性は上の層で保証します）。
func (r *supabaseCodeRepository) MarkCodeAsUsed(id string) error {
	return r.UpdateCode(id, map[string]interface{}{"is_used": true})
}

// DeleteCode は指定IDのコードレコードを削除します。
// 存在しないIDに対する挙動はバックエンド依存で、失敗にはなりません。
func (r *supabaseCodeRepository) DeleteCode(id string) error {
	_, _, err := r.client.From(codesTable).
		Delete("", "").
		Eq("id", id).
		Execute()
	if err != nil {
		return fmt.Errorf("コードレコードの削除に失敗しました: %w", err)
	}
	return nil
}

// sortCodesByCreatedAtDesc は作成日時の降順で安定ソートします。
// created_at のないレコードは epoch 0 扱いで末尾に並びます。
func sortCodesByCreatedAtDesc(records []models.CodeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
