package auth

import (
	"log"
	"sync"
)

// SessionEventType はセッション変化イベントの種別です。
type SessionEventType string

const (
	// SessionSignedIn はサインイン（サインアップ含む）成功を表します。
	SessionSignedIn SessionEventType = "signed_in"
	// SessionSignedOut はサインアウトを表します。
	SessionSignedOut SessionEventType = "signed_out"
)

// SessionEvent はセッション変化の通知1件分です。
type SessionEvent struct {
	Type   SessionEventType
	UserID string
}

// SessionBroker はセッション変化を購読者へ配信するオブザーバブルです。
// ライフサイクルマネージャーが起動時に一度だけ購読し、イベントごとに
// 自身の状態のリロード/クリアへ変換します。
type SessionBroker struct {
	mu   sync.Mutex
	subs []chan SessionEvent
}

// NewSessionBroker は新しい SessionBroker を作成します。
func NewSessionBroker() *SessionBroker {
	return &SessionBroker{}
}

// Subscribe は購読チャネルを返します。バッファ付きのため Publish をブロックしません。
func (b *SessionBroker) Subscribe() <-chan SessionEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan SessionEvent, 16)
	b.subs = append(b.subs, ch)
	return ch
}

// Publish は全購読者へイベントを配信します。
// 購読者のバッファが一杯の場合、そのイベントは捨てられます（ブロックしない）。
func (b *SessionBroker) Publish(ev SessionEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			log.Printf("SessionBroker: 購読者のバッファが一杯のためイベントを破棄しました: %s (%s)", ev.Type, ev.UserID)
		}
	}
}
