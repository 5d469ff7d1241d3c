// Package todo はユーザーとToDoの永続化および所有権チェックを提供します。
package todo

// User は登録済みユーザーを表します。
// 登録後の更新・削除は行いません。
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"uniqueIndex;size:25;not null" json:"username"`
	PasswordHash string `gorm:"size:200;not null" json:"-"`

	Todos []Todo `gorm:"foreignKey:OwnerID" json:"-"`
}

// Todo は1件のToDo項目を表します。
// OwnerID は作成時に確定し、以後変更されません。
type Todo struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Content   string `gorm:"size:200;not null" json:"content"`
	Completed bool   `gorm:"not null;default:false" json:"completed"`
	OwnerID   uint   `gorm:"index;not null" json:"ownerId"`
}

// MaxContentLength はToDo内容の最大文字数です。
const MaxContentLength = 200

// ユーザー名・パスワードの形式制約。バリデーションは入力層で行います。
const (
	MinUsernameLength = 4
	MaxUsernameLength = 25
	MinPasswordLength = 6
)
