package database

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

// pgCodeRepository は Postgres 直接続の CodeRepository 実装です。
// PostgREST を経由せず、Supabase の codes テーブルへ直接クエリを発行します。
type pgCodeRepository struct {
	db *sql.DB
}

// NewPgCodeRepository は Postgres 直接続のリポジトリを作成します。
func NewPgCodeRepository(db *sql.DB) CodeRepository {
	return &pgCodeRepository{db: db}
}

// CreateCode は新しいコードレコードを作成します。
func (r *pgCodeRepository) CreateCode(params models.CodeCreateParams) (*models.CodeRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := r.db.Exec(
		`INSERT INTO codes (id, user_id, code, description, collection_name, collection_description, is_used, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, params.UserID, params.Code, params.Description,
		params.CollectionName, params.CollectionDescription, false, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("コードレコードの挿入に失敗しました: %w", err)
	}

	return &models.CodeRecord{
		ID:                    id,
		UserID:                params.UserID,
		Code:                  params.Code,
		Description:           params.Description,
		CollectionName:        params.CollectionName,
		CollectionDescription: params.CollectionDescription,
		IsUsed:                false,
		CreatedAt:             now,
		UpdatedAt:             now,
	}, nil
}

// GetUserCodes は指定ユーザーの全コードレコードを作成日時の降順で返します。
// 失敗した場合はログに残して空のスライスを返します。
func (r *pgCodeRepository) GetUserCodes(userID string) []models.CodeRecord {
	rows, err := r.db.Query(
		`SELECT id, user_id, code, description, collection_name, collection_description, is_used, created_at, updated_at
		 FROM codes WHERE user_id = $1
		 ORDER BY created_at DESC NULLS LAST`, userID)
	if err != nil {
		log.Printf("CodeRepository: ユーザー %s のコード取得に失敗したため空のリストを返します: %v", userID, err)
		return []models.CodeRecord{}
	}
	defer rows.Close()

	records := []models.CodeRecord{}
	for rows.Next() {
		rec, err := scanCodeRecord(rows)
		if err != nil {
			log.Printf("CodeRepository: コードレコードのスキャンに失敗したため空のリストを返します: %v", err)
			return []models.CodeRecord{}
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		log.Printf("CodeRepository: 行イテレーション中にエラーが発生したため空のリストを返します: %v", err)
		return []models.CodeRecord{}
	}

	return records
}

// GetCode は指定IDのコードレコードを取得します。存在しない場合は ErrCodeNotFound。
func (r *pgCodeRepository) GetCode(id string) (*models.CodeRecord, error) {
	row := r.db.QueryRow(
		`SELECT id, user_id, code, description, collection_name, collection_description, is_used, created_at, updated_at
		 FROM codes WHERE id = $1`, id)

	rec, err := scanCodeRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("コードレコードの取得に失敗しました: %w", err)
	}
	return rec, nil
}

// 部分更新で受け付けるカラム。これ以外のキーは無視します。
var updatableCodeColumns = map[string]bool{
	"code":                   true,
	"description":            true,
	"collection_name":        true,
	"collection_description": true,
	"is_used":                true,
}

// UpdateCode は部分更新を行い、updated_at を更新します。
func (r *pgCodeRepository) UpdateCode(id string, patch map[string]interface{}) error {
	setParts := []string{}
	args := []interface{}{}
	idx := 1
	for col, val := range patch {
		if !updatableCodeColumns[col] {
			continue
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", col, idx))
		args = append(args, val)
		idx++
	}
	setParts = append(setParts, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++
	args = append(args, id)

	query := fmt.Sprintf("UPDATE codes SET %s WHERE id = $%d", strings.Join(setParts, ", "), idx)
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("コードレコードの更新に失敗しました: %w", err)
	}
	return nil
}

// MarkCodeAsUsed は is_used を true にします。
func (r *pgCodeRepository) MarkCodeAsUsed(id string) error {
	return r.UpdateCode(id, map[string]interface{}{"is_used": true})
}

// DeleteCode は指定IDのコードレコードを削除します。存在しなくても失敗にはしません。
func (r *pgCodeRepository) DeleteCode(id string) error {
	if _, err := r.db.Exec("DELETE FROM codes WHERE id = $1", id); err != nil {
		return fmt.Errorf("コードレコードの削除に失敗しました: %w", err)
	}
	return nil
}

// rowScanner は sql.Row と sql.Rows の共通インターフェースです。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCodeRecord(row rowScanner) (*models.CodeRecord, error) {
	var rec models.CodeRecord
	var createdAt, updatedAt sql.NullTime
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.Code,
		&rec.Description,
		&rec.CollectionName,
		&rec.CollectionDescription,
		&rec.IsUsed,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		rec.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time
	}
	return &rec, nil
}
