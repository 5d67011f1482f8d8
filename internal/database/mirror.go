package database

import (
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/progate-hackathon-strawberry-flavor/NIDAN-backend/internal/models"
)

// mirrorSlotPrefix はローカルミラーのキープレフィックスです。
// 元々はブラウザの localStorage のスロット名だったものを uid 付きで引き継いでいます。
const mirrorSlotPrefix = "2fa-collections:"

// ErrMirrorNotFound はミラーにエントリが存在しない場合のエラーです。
var ErrMirrorNotFound = errors.New("mirror entry not found")

// CollectionMirror はグループ化済みコレクションビューのローカル永続ミラーです。
// あくまで表示用のベストエフォートなキャッシュで、リモートの取得結果が
// 届いた時点で完全に上書きされます。真実のソースにはなりません。
type CollectionMirror interface {
	Save(userID string, collections []models.Collection) error
	Load(userID string) ([]models.Collection, error)
	Delete(userID string) error
	Close() error
}

// BadgerMirror は BadgerDB を使った CollectionMirror 実装です。
type BadgerMirror struct {
	db *badger.DB
}

// NewBadgerMirror は指定ディレクトリに永続化するミラーを開きます。
func NewBadgerMirror(path string) (*BadgerMirror, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ローカルミラーのオープンに失敗しました: %w", err)
	}
	return &BadgerMirror{db: db}, nil
}

// NewInMemoryMirror はディスクに書き込まないミラーを開きます。テスト用です。
func NewInMemoryMirror() (*BadgerMirror, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("インメモリミラーのオープンに失敗しました: %w", err)
	}
	return &BadgerMirror{db: db}, nil
}

func mirrorKey(userID string) []byte {
	return []byte(mirrorSlotPrefix + userID)
}

// Save はコレクションビューをJSONで保存します。変更のたびに呼ばれます。
func (m *BadgerMirror) Save(userID string, collections []models.Collection) error {
	data, err := json.Marshal(collections)
	if err != nil {
		return fmt.Errorf("ミラーデータのエンコードに失敗しました: %w", err)
	}
	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(mirrorKey(userID), data)
	})
	if err != nil {
		return fmt.Errorf("ミラーへの保存に失敗しました: %w", err)
	}
	return nil
}

// Load は保存済みのコレクションビューを読み込みます。
// エントリがない場合は ErrMirrorNotFound を返します。
func (m *BadgerMirror) Load(userID string) ([]models.Collection, error) {
	var data []byte
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(mirrorKey(userID))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrMirrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ミラーの読み込みに失敗しました: %w", err)
	}

	var collections []models.Collection
	if err := json.Unmarshal(data, &collections); err != nil {
		return nil, fmt.Errorf("ミラーデータのデコードに失敗しました: %w", err)
	}
	return collections, nil
}

// Delete はユーザーのミラーエントリを削除します。サインアウト時に呼ばれます。
func (m *BadgerMirror) Delete(userID string) error {
	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(mirrorKey(userID))
	})
	if err != nil {
		return fmt.Errorf("ミラーエントリの削除に失敗しました: %w", err)
	}
	return nil
}

// Close はミラーを閉じます。
func (m *BadgerMirror) Close() error {
	return m.db.Close()
}
