package todo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// UserStore はユーザーの永続化を担います。
type UserStore struct {
	db *gorm.DB
}

// NewUserStore は UserStore を作成します。
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Register はユーザー名とハッシュ済みパスワードで新規ユーザーを作成します。
// ユーザー名の重複は ErrDuplicateUsername を返します。
// 事前の存在確認に加えて、同名同時登録の競合はデータベースの
// 一意制約が最終防衛線として弾きます。
func (s *UserStore) Register(ctx context.Context, username, passwordHash string) (*User, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&User{}).
		Where("username = ?", username).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateUsername
	}

	user := &User{Username: username, PasswordHash: passwordHash}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUsername
		}
		return nil, err
	}
	return user, nil
}

// FindByUsername はユーザー名の完全一致（大文字小文字を区別）で検索します。
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByID はセッション解決用にIDでユーザーを検索します。
func (s *UserStore) FindByID(ctx context.Context, id uint) (*User, error) {
	var user User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}
