package todo

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

// TodoStore はToDoの永続化と所有権チェックを担います。
type TodoStore struct {
	db *gorm.DB
}

// NewTodoStore は TodoStore を作成します。
func NewTodoStore(db *gorm.DB) *TodoStore {
	return &TodoStore{db: db}
}

// Create は新しいToDoを作成します。completed は false で始まります。
// 内容は前後の空白を除いた上で、空または200文字超の場合 INVALID_INPUT になります。
func (s *TodoStore) Create(ctx context.Context, ownerID uint, content string) (*Todo, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalidInput("ToDoの内容を入力してください。")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return nil, invalidInput("ToDoの内容は200文字以内で入力してください。")
	}

	item := &Todo{Content: content, OwnerID: ownerID}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// ListByOwner は所有者のToDoを作成順（ID昇順）で返します。
func (s *TodoStore) ListByOwner(ctx context.Context, ownerID uint) ([]Todo, error) {
	var items []Todo
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ToggleCompleted は完了フラグを反転します。
// 取得 → 所有者チェック → 更新の順で行い、不存在は ErrNotFound、
// 他人のToDoは ErrForbidden を返します。
func (s *TodoStore) ToggleCompleted(ctx context.Context, todoID, requesterID uint) (*Todo, error) {
	item, err := s.findByID(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeOwnerAction(item.OwnerID, requesterID); err != nil {
		return nil, err
	}

	item.Completed = !item.Completed
	if err := s.db.WithContext(ctx).Model(item).Update("completed", item.Completed).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Delete はToDoを完全に削除します（論理削除はしません）。
// ToggleCompleted と同じく取得 → 所有者チェックの順で検証します。
func (s *TodoStore) Delete(ctx context.Context, todoID, requesterID uint) error {
	item, err := s.findByID(ctx, todoID)
	if err != nil {
		return err
	}
	if err := AuthorizeOwnerAction(item.OwnerID, requesterID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(&Todo{}, item.ID).Error
}

func (s *TodoStore) findByID(ctx context.Context, id uint) (*Todo, error) {
	var item Todo
	err := s.db.WithContext(ctx).First(&item, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}
