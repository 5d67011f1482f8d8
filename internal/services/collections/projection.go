package collections

import (
	"strings"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

// DefaultCodeLabel はラベル未指定のコードに付くデフォルトの説明です。
const DefaultCodeLabel = "2FA Code"

// ParseCodes は複数行テキストをコード列に分解します。
// 改行で分割し、各行をトリムし、空行は捨てます。
func ParseCodes(raw string) []string {
	codes := []string{}
	for _, line := range strings.Split(raw, "\n") {
		code := strings.TrimSpace(line)
		if code == "" {
			continue
		}
		codes = append(codes, code)
	}
	return codes
}

// BuildCollections はフラットなレコード集合からグループ化ビューを再構築する
// 純粋な射影関数です。インクリメンタルに差分適用せず毎回再計算することで、
// ビューがレコード集合から乖離しないことを保証します。
//
// グループは collection_name 単位。説明はグループ内で最初に空でない
// collection_description を持つレコードから取り、コレクションの出現順は
// 入力レコード列での初出順（＝作成日時の降順で並べた場合は最新順）です。
func BuildCollections(records []models.CodeRecord) []models.Collection {
	byName := map[string]*models.Collection{}
	order := []string{}

	for _, rec := range records {
		col, ok := byName[rec.CollectionName]
		if !ok {
			createdAt := rec.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			col = &models.Collection{
				ID:        rec.CollectionName,
				Name:      rec.CollectionName,
				Codes:     []models.LocalCode{},
				CreatedAt: createdAt,
			}
			byName[rec.CollectionName] = col
			order = append(order, rec.CollectionName)
		}
		if col.Description == "" && rec.CollectionDescription != "" {
			col.Description = rec.CollectionDescription
		}

		label := rec.Description
		if label == "" {
			label = DefaultCodeLabel
		}
		col.Codes = append(col.Codes, models.LocalCode{
			ID:        rec.ID,
			Code:      rec.Code,
			Label:     label,
			Used:      rec.IsUsed,
			CreatedAt: rec.CreatedAt,
		})
	}

	collections := make([]models.Collection, 0, len(order))
	for _, name := range order {
		collections = append(collections, *byName[name])
	}
	return collections
}
