package models

// MonthlyUsage は1ヶ月分の集計バケットです。
// Available = Total - Used が常に成り立ちます。
type MonthlyUsage struct {
	Month     string `json:"month"`
	Total     int    `json:"total"`
	Used      int    `json:"used"`
	Available int    `json:"available"`
}

// YearStats は1年分の合計と月次バケット列です。
type YearStats struct {
	TotalCodes     int            `json:"total_codes"`
	TotalUsed      int            `json:"total_used"`
	TotalAvailable int            `json:"total_available"`
	MonthlyData    []MonthlyUsage `json:"monthly_data"`
}
