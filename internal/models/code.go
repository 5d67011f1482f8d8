package models

import "time"

// CodeRecord は codes テーブルのレコードに対応する構造体です。
// バックアップコード1件がそのまま1レコードになります。
type CodeRecord struct {
	ID                    string    `json:"id"`
	UserID                string    `json:"user_id"`
	Code                  string    `json:"code"`
	Description           string    `json:"description"`
	CollectionName        string    `json:"collection_name"`
	CollectionDescription string    `json:"collection_description"`
	IsUsed                bool      `json:"is_used"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// CodeCreateParams はコード作成時に必要な入力です。
// ID・is_used・タイムスタンプはストア側で付与されます。
type CodeCreateParams struct {
	UserID                string `json:"user_id"`
	Code                  string `json:"code"`
	Description           string `json:"description"`
	CollectionName        string `json:"collection_name"`
	CollectionDescription string `json:"collection_description"`
}

// CodeInsertFailure はバッチ挿入・削除で失敗した1件分の結果です。
// ロールバックは行わないため、部分的な成功を呼び出し側から観測できるようにします。
type CodeInsertFailure struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}
