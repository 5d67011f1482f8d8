// Package collections はコレクション/コードのライフサイクルマネージャーです。
// リモートのコードレコード集合を名前付きコレクションへグループ化したビューを
// ユーザーごとに保持し、作成・削除・追加・使用・一括削除の操作を提供します。
// ビューはキャッシュであり、セッション変化と各ミューテーション成功後に
// リモートのレコード集合から常に再構築できます。
package collections

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/database"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/services/auth"
)

var (
	// ErrAuthRequired は未認証でのミューテーション試行を表します。
	ErrAuthRequired = errors.New("authentication required")
	// ErrAlreadyUsed は使用済みコードの再使用を表します。
	ErrAlreadyUsed = errors.New("code already used")
	// ErrCollectionNotFound は存在しないコレクションIDの参照を表します。
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrCodeNotFound はコレクション内に存在しないコードIDの参照を表します。
	ErrCodeNotFound = errors.New("code not found in collection")
	// ErrNameRequired はコレクション名が空（トリム後）であることを表します。
	ErrNameRequired = errors.New("collection name required")
)

// 通知イベント名。ミューテーション成功後にクライアントへプッシュされます。
const (
	EventCollectionsUpdated = "collections_updated"
	EventAnalyticsUpdated   = "analytics_updated"
)

// Notifier はユーザー単位の変更通知先です。realtime.Hub が実装します。
// 通知はベストエフォートで、失敗しても操作自体は成功扱いです。
type Notifier interface {
	NotifyUser(userID, event string)
}

// userState は1ユーザー分のグループ化ビューと選択中コレクションです。
type userState struct {
	collections []models.Collection
	selected    string
}

// Manager はコレクション/コードのライフサイクルマネージャーです。
type Manager struct {
	codes    database.CodeRepository
	mirror   database.CollectionMirror
	notifier Notifier

	mu     sync.RWMutex
	states map[string]*userState
}

// NewManager は新しいマネージャーを作成します。mirror と notifier は nil でも動作します。
func NewManager(codes database.CodeRepository, mirror database.CollectionMirror, notifier Notifier) *Manager {
	return &Manager{
		codes:    codes,
		mirror:   mirror,
		notifier: notifier,
		states:   map[string]*userState{},
	}
}

// Run はセッションイベントを購読し、サインインでリロード、サインアウトで
// クリアを行うループです。起動時に一度だけゴルーチンで呼び出してください。
func (m *Manager) Run(events <-chan auth.SessionEvent) {
	for ev := range events {
		switch ev.Type {
		case auth.SessionSignedIn:
			// まずミラーから即時表示用に復元し、その後リモートで上書きする
			m.restoreFromMirror(ev.UserID)
			if err := m.Reload(ev.UserID); err != nil {
				log.Printf("Manager: ユーザー %s のリロードに失敗しました: %v", ev.UserID, err)
			}
		case auth.SessionSignedOut:
			m.Clear(ev.UserID)
		}
	}
}

// Collections はユーザーのグループ化ビューを返します。
// メモリ上に状態がない場合はミラー復元を試み、それもなければリモートから構築します。
func (m *Manager) Collections(userID string) ([]models.Collection, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.ensureStateLocked(userID)
	return copyCollections(st.collections), nil
}

// Selected は選択中のコレクションIDを返します（未選択なら空文字）。
func (m *Manager) Selected(userID string) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if st, ok := m.states[userID]; ok {
		return st.selected
	}
	return ""
}

// Select はコレクションを選択状態にします。
func (m *Manager) Select(userID, collectionID string) error {
	if userID == "" {
		return ErrAuthRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.ensureStateLocked(userID)
	if findCollection(st, collectionID) == nil {
		return ErrCollectionNotFound
	}
	st.selected = collectionID
	return nil
}

// CreateCollection は空のコレクションをローカル状態に追加します。
// リモートには書き込みません。コレクションは独立したリモートエンティティでは
// ないため、最初のコードが追加された時点で初めて永続化されます。
func (m *Manager) CreateCollection(userID, name, description string) (*models.Collection, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.ensureStateLocked(userID)
	col := models.Collection{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Codes:       []models.LocalCode{},
		CreatedAt:   time.Now().UTC(),
	}
	st.collections = append(st.collections, col)

	m.saveMirrorLocked(userID, st)
	m.notify(userID, EventCollectionsUpdated)
	return &col, nil
}

// DeleteCollection はコレクションをローカル状態から取り除き、配下のリモート
// レコードをベストエフォートでカスケード削除します。リロードで「削除したはずの
// コレクション」が復活しないようにするための措置です。
// 選択中コレクションが対象だった場合は選択を解除します。
func (m *Manager) DeleteCollection(userID, collectionID string) error {
	if userID == "" {
		return ErrAuthRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.ensureStateLocked(userID)
	col := findCollection(st, collectionID)
	if col == nil {
		return ErrCollectionNotFound
	}

	failed := 0
	for _, code := range col.Codes {
		if err := m.codes.DeleteCode(code.ID); err != nil {
			failed++
			log.Printf("Manager: コード %s のリモート削除に失敗しました: %v", code.ID, err)
		}
	}

	remaining := st.collections[:0]
	for _, c := range st.collections {
		if c.ID != collectionID {
			remaining = append(remaining, c)
		}
	}
	st.collections = remaining
	if st.selected == collectionID {
		st.selected = ""
	}

	m.saveMirrorLocked(userID, st)
	m.notify(userID, EventCollectionsUpdated)
	m.notify(userID, EventAnalyticsUpdated)

	if failed > 0 {
		return fmt.Errorf("コレクションは削除しましたが、%d件のコードのリモート削除に失敗しました", failed)
	}
	return nil
}

// AddCodes は複数行テキストをコード列に分解し、1行につき1件のリモート
// レコードを作成してコレクションへ追加します。
//
// バッチの途中で作成が失敗しても、作成済みのレコードはそのまま残ります
// （補償ロールバックはしません）。部分的な成功を観測できるよう、失敗分は
// 1件ずつ failures として返します。
func (m *Manager) AddCodes(userID, collectionID, rawText, label string) ([]models.LocalCode, []models.CodeInsertFailure, error) {
	if userID == "" {
		return nil, nil, ErrAuthRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.ensureStateLocked(userID)
	col := findCollection(st, collectionID)
	if col == nil {
		return nil, nil, ErrCollectionNotFound
	}

	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultCodeLabel
	}

	created := []models.LocalCode{}
	failures := []models.CodeInsertFailure{}
	for _, code := range ParseCodes(rawText) {
		rec, err := m.codes.CreateCode(models.CodeCreateParams{
			UserID:                userID,
			Code:                  code,
			Description:           label,
			CollectionName:        col.Name,
			CollectionDescription: col.Description,
		})
		if err != nil {
			log.Printf("Manager: コードの作成に失敗しました: %v", err)
			failures = append(failures, models.CodeInsertFailure{Code: code, Reason: err.Error()})
			continue
		}
		created = append(created, models.LocalCode{
			ID:        rec.ID,
			Code:      rec.Code,
			Label:     rec.Description,
			Used:      false,
			CreatedAt: rec.CreatedAt,
		})
	}

	col.Codes = append(col.Codes, created...)

	m.saveMirrorLocked(userID, st)
	m.notify(userID, EventCollectionsUpdated)
	m.notify(userID, EventAnalyticsUpdated)
	return created, failures, nil
}

// UseCode はコードを1回だけ使用済みにします。
// 使用済みのコードに対してはリモート呼び出しを行わず ErrAlreadyUsed を返します。
//
// このガードはクライアントローカルな read-then-write であり、リモートの
// mark-used 自体は CAS で保護されていません。複数クライアント/タブが同じ
// コードに同時にアクセスした場合、両方が成功し得ることは設計上許容しています。
func (m *Manager) UseCode(userID, collectionID, codeID string) (*models.LocalCode, error) {
	if userID == "" {
		return nil, ErrAuthRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.ensureStateLocked(userID)
	col := findCollection(st, collectionID)
	if col == nil {
		return nil, ErrCollectionNotFound
	}

	idx := -1
	for i := range col.Codes {
		if col.Codes[i].ID == codeID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrCodeNotFound
	}
	if col.Codes[idx].Used {
		return nil, ErrAlreadyUsed
	}

	if err := m.codes.MarkCodeAsUsed(codeID); err != nil {
		return nil, fmt.Errorf("コードの使用済みマークに失敗しました: %w", err)
	}

	now := time.Now().UTC()
	col.Codes[idx].Used = true
	col.Codes[idx].UsedAt = &now

	m.saveMirrorLocked(userID, st)
	m.notify(userID, EventCollectionsUpdated)
	m.notify(userID, EventAnalyticsUpdated)

	used := col.Codes[idx]
	return &used, nil
}

// DeleteUsedCodes はコレクション内の使用済みコードを一括削除します。
// リモート削除とローカル削除を対にし、リモート削除に成功したものだけを
// ローカルビューから取り除きます（リロードによる復活を防ぐため）。
// 失敗分は1件ずつ failures として返します。
func (m *Manager) DeleteUsedCodes(userID, collectionID string) (int, []models.CodeInsertFailure, error) {
	if userID == "" {
		return 0, nil, ErrAuthRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	st := m.ensureStateLocked(userID)
	col := findCollection(st, collectionID)
	if col == nil {
		return 0, nil, ErrCollectionNotFound
	}

	removed := 0
	failures := []models.CodeInsertFailure{}
	remaining := []models.LocalCode{}
	for _, code := range col.Codes {
		if !code.Used {
			remaining = append(remaining, code)
			continue
		}
		if err := m.codes.DeleteCode(code.ID); err != nil {
			log.Printf("Manager: 使用済みコード %s の削除に失敗しました: %v", code.ID, err)
			failures = append(failures, models.CodeInsertFailure{Code: code.Code, Reason: err.Error()})
			remaining = append(remaining, code)
			continue
		}
		removed++
	}
	col.Codes = remaining

	m.saveMirrorLocked(userID, st)
	m.notify(userID, EventCollectionsUpdated)
	m.notify(userID, EventAnalyticsUpdated)
	return removed, failures, nil
}

// Reload はリモートの全レコードからビューを再構築して上書きします。
// 選択中コレクションが再構築後に存在しない場合は選択を解除します。
func (m *Manager) Reload(userID string) error {
	if userID == "" {
		return ErrAuthRequired
	}

	records := m.codes.GetUserCodes(userID)

	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.states[userID]
	if !ok {
		st = &userState{}
		m.states[userID] = st
	}
	st.collections = BuildCollections(records)
	if st.selected != "" && findCollection(st, st.selected) == nil {
		st.selected = ""
	}

	m.saveMirrorLocked(userID, st)
	m.notify(userID, EventCollectionsUpdated)
	return nil
}

// Clear はユーザーのローカル状態とミラーを破棄します。サインアウト時に呼ばれます。
func (m *Manager) Clear(userID string) {
	m.mu.Lock()
	delete(m.states, userID)
	m.mu.Unlock()

	if m.mirror != nil {
		if err := m.mirror.Delete(userID); err != nil {
			log.Printf("Manager: ユーザー %s のミラー削除に失敗しました: %v", userID, err)
		}
	}
}

// restoreFromMirror はミラーからローカル状態を復元します。
// リモート取得が完了するまでの暫定表示用です。
func (m *Manager) restoreFromMirror(userID string) bool {
	if m.mirror == nil {
		return false
	}
	collections, err := m.mirror.Load(userID)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[userID] = &userState{collections: collections}
	return true
}

// ensureStateLocked はユーザー状態を返します。存在しない場合、まずミラーから
// 復元を試み、なければリモートから構築します。呼び出し側が m.mu を保持していること。
func (m *Manager) ensureStateLocked(userID string) *userState {
	if st, ok := m.states[userID]; ok {
		return st
	}

	st := &userState{}
	if m.mirror != nil {
		if collections, err := m.mirror.Load(userID); err == nil {
			st.collections = collections
			m.states[userID] = st
			return st
		}
	}

	st.collections = BuildCollections(m.codes.GetUserCodes(userID))
	m.states[userID] = st
	m.saveMirrorLocked(userID, st)
	return st
}

// saveMirrorLocked は現在のビューをミラーへ保存します。失敗はログに残すだけです。
func (m *Manager) saveMirrorLocked(userID string, st *userState) {
	if m.mirror == nil {
		return
	}
	if err := m.mirror.Save(userID, st.collections); err != nil {
		log.Printf("Manager: ユーザー %s のミラー保存に失敗しました: %v", userID, err)
	}
}

// notify は変更イベントをベストエフォートで配信します。
func (m *Manager) notify(userID, event string) {
	if m.notifier == nil {
		return
	}
	m.notifier.NotifyUser(userID, event)
}

// findCollection はID一致でコレクションを探します。見つからなければ nil。
func findCollection(st *userState, collectionID string) *models.Collection {
	for i := range st.collections {
		if st.collections[i].ID == collectionID {
			return &st.collections[i]
		}
	}
	return nil
}

// copyCollections はハンドラーがロック外で安全に参照できるよう、
// コード列ごとコピーしたスライスを返します。
func copyCollections(collections []models.Collection) []models.Collection {
	out := make([]models.Collection, len(collections))
	for i, col := range collections {
		codes := make([]models.LocalCode, len(col.Codes))
		copy(codes, col.Codes)
		col.Codes = codes
		out[i] = col
	}
	return out
}
