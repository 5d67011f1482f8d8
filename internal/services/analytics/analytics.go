// Package analytics はコードレコード集合に対する純粋な集計関数を提供します。
// すべての関数は同じ入力と「現在時刻」に対して決定的で、空の入力に対しては
// エラーではなく全ゼロ/空の結果を返します。
package analytics

import (
	"sort"
	"time"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

// monthNames はチャートの月ラベルです（1月始まりの暦順）。
var monthNames = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

// MonthlyUsage は指定年の12ヶ月分のバケットを暦順（Jan..Dec）で返します。
// created_at のないレコードは集計から除外します。
func MonthlyUsage(records []models.CodeRecord, year int) []models.MonthlyUsage {
	buckets := make([]models.MonthlyUsage, 12)
	for i := range buckets {
		buckets[i].Month = monthNames[i]
	}

	for _, rec := range records {
		if rec.CreatedAt.IsZero() {
			continue
		}
		created := rec.CreatedAt.UTC()
		if created.Year() != year {
			continue
		}
		idx := int(created.Month()) - 1
		buckets[idx].Total++
		if rec.IsUsed {
			buckets[idx].Used++
		}
	}

	for i := range buckets {
		buckets[i].Available = buckets[i].Total - buckets[i].Used
	}
	return buckets
}

// CurrentYearStats は now の属する年の月次バケットを合計した統計を返します。
func CurrentYearStats(records []models.CodeRecord, now time.Time) models.YearStats {
	monthly := MonthlyUsage(records, now.UTC().Year())

	stats := models.YearStats{MonthlyData: monthly}
	for _, m := range monthly {
		stats.TotalCodes += m.Total
		stats.TotalUsed += m.Used
		stats.TotalAvailable += m.Available
	}
	return stats
}

// ContributionData は指定年の全日（うるう日含む）について、日付文字列
// (YYYY-MM-DD) から 0〜4 の強度レベルへのマップを返します。
//
// レベルは固定バケットの線形正規化です: 最大日次件数が 0 ならすべて 0、
// そうでなければ floor(count/max*4) を [0,4] にクランプします。
// 1日の外れ値が年全体の分母を決めるため、多くの件数が同じレベルに潰れることが
// あります（パーセンタイル方式ではありません）。
func ContributionData(records []models.CodeRecord, year int) map[string]int {
	counts := map[string]int{}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() == year; d = d.AddDate(0, 0, 1) {
		counts[d.Format("2006-01-02")] = 0
	}

	for _, rec := range records {
		if rec.CreatedAt.IsZero() {
			continue
		}
		created := rec.CreatedAt.UTC()
		if created.Year() != year {
			continue
		}
		counts[created.Format("2006-01-02")]++
	}

	max := 0
	for _, c := range counts {
		if c > max {
			max = c
		}
	}

	levels := make(map[string]int, len(counts))
	for key, c := range counts {
		if max == 0 {
			levels[key] = 0
			continue
		}
		level := c * 4 / max
		if level > 4 {
			level = 4
		}
		levels[key] = level
	}
	return levels
}

// RecentActivity は now から days 日以内に作成されたレコードを作成日時の
// 降順で返します。created_at のないレコードは「最近ではない」として除外します。
func RecentActivity(records []models.CodeRecord, now time.Time, days int) []models.CodeRecord {
	cutoff := now.UTC().AddDate(0, 0, -days)

	recent := []models.CodeRecord{}
	for _, rec := range records {
		if rec.CreatedAt.IsZero() {
			continue
		}
		if rec.CreatedAt.UTC().Before(cutoff) {
			continue
		}
		recent = append(recent, rec)
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	return recent
}
