package auth

import "strings"

// MapAuthErrorMessage は GoTrue のエラーをユーザー向けメッセージへ変換します。
// エラー種別ごとに異なるメッセージを返します。
//
// 注意: GoTrue は「ユーザーが存在しない」と「パスワードが違う」を意図的に
// 同じ invalid login credentials にまとめて返すことがあります。その場合は
// パスワード誤りのメッセージになります。
func MapAuthErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "user not found"),
		strings.Contains(msg, "user_not_found"):
		return "このメールアドレスのアカウントが見つかりません"
	case strings.Contains(msg, "invalid login credentials"),
		strings.Contains(msg, "invalid_credentials"):
		return "パスワードが正しくありません"
	case strings.Contains(msg, "already registered"),
		strings.Contains(msg, "already been registered"),
		strings.Contains(msg, "email_exists"):
		return "このメールアドレスは既に使用されています"
	case strings.Contains(msg, "at least 6 characters"),
		strings.Contains(msg, "weak_password"),
		strings.Contains(msg, "password should be"):
		return "パスワードは6文字以上にしてください"
	case strings.Contains(msg, "invalid email"),
		strings.Contains(msg, "invalid format"),
		strings.Contains(msg, "validation_failed"):
		return "メールアドレスの形式が正しくありません"
	default:
		return "認証に失敗しました。しばらくしてからもう一度お試しください"
	}
}
