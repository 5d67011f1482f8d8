package models

import "time"

// LocalCode はコレクション表示用のローカルなコードビューです。
// リモートの CodeRecord から射影されます。
type LocalCode struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	Label     string     `json:"label"`
	Used      bool       `json:"used"`
	CreatedAt time.Time  `json:"created_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// Collection は collection_name を共有するコード群の派生ビューです。
// リモートに独立したエンティティとしては存在せず、フラットなレコード集合から
// 常に再構築できます（＝キャッシュであり、真実のソースではありません）。
type Collection struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Codes       []LocalCode `json:"codes"`
	CreatedAt   time.Time   `json:"created_at"`
}
