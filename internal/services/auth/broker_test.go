package auth

import (
	"errors"
	"testing"
)

// TestSessionBroker_PublishSubscribe はイベントの配信をテストします。
func TestSessionBroker_PublishSubscribe(t *testing.T) {
	broker := NewSessionBroker()
	ch := broker.Subscribe()

	broker.Publish(SessionEvent{Type: SessionSignedIn, UserID: "user-1"})
	broker.Publish(SessionEvent{Type: SessionSignedOut, UserID: "user-1"})

	ev := <-ch
	if ev.Type != SessionSignedIn || ev.UserID != "user-1" {
		t.Errorf("Expected signed_in for user-1, but got %+v", ev)
	}
	ev = <-ch
	if ev.Type != SessionSignedOut {
		t.Errorf("Expected signed_out, but got %+v", ev)
	}
}

// TestSessionBroker_MultipleSubscribers は複数購読者への配信をテストします。
func TestSessionBroker_MultipleSubscribers(t *testing.T) {
	broker := NewSessionBroker()
	ch1 := broker.Subscribe()
	ch2 := broker.Subscribe()

	broker.Publish(SessionEvent{Type: SessionSignedIn, UserID: "user-1"})

	if ev := <-ch1; ev.UserID != "user-1" {
		t.Errorf("Subscriber 1: expected user-1, but got %+v", ev)
	}
	if ev := <-ch2; ev.UserID != "user-1" {
		t.Errorf("Subscriber 2: expected user-1, but got %+v", ev)
	}
}

// TestSessionBroker_FullBufferDoesNotBlock はバッファ満杯時にブロックしないことをテストします。
func TestSessionBroker_FullBufferDoesNotBlock(t *testing.T) {
	broker := NewSessionBroker()
	broker.Subscribe() // 誰も読まない購読者

	// バッファ(16)を超えて発行してもデッドロックしない
	for i := 0; i < 32; i++ {
		broker.Publish(SessionEvent{Type: SessionSignedIn, UserID: "user-1"})
	}
}

// TestMapAuthErrorMessage はエラー種別ごとのメッセージ変換をテストします。
func TestMapAuthErrorMessage(t *testing.T) {
	cases := []struct {
		err      error
		expected string
	}{
		{errors.New("user not found"), "このメールアドレスのアカウントが見つかりません"},
		{errors.New("Invalid login credentials"), "パスワードが正しくありません"},
		{errors.New("User already registered"), "このメールアドレスは既に使用されています"},
		{errors.New("Password should be at least 6 characters"), "パスワードは6文字以上にしてください"},
		{errors.New("invalid email address"), "メールアドレスの形式が正しくありません"},
		{errors.New("connection refused"), "認証に失敗しました。しばらくしてからもう一度お試しください"},
	}

	for _, c := range cases {
		if got := MapAuthErrorMessage(c.err); got != c.expected {
			t.Errorf("MapAuthErrorMessage(%q): expected %q, but got %q", c.err, c.expected, got)
		}
	}

	if MapAuthErrorMessage(nil) != "" {
		t.Error("Expected empty message for nil error")
	}
}
