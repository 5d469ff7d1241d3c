// Package password はパスワードのハッシュ化と検証を提供します。
package password

import "golang.org/x/crypto/bcrypt"

// Hasher は bcrypt によるパスワードハッシュ化を行います。
// ソルトは bcrypt がハッシュごとに生成し、ダイジェスト文字列に埋め込まれます。
type Hasher struct {
	cost int
}

// NewHasher は指定コストの Hasher を作成します。
// コストが bcrypt の許容範囲外の場合はデフォルトコストに丸めます。
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash は平文パスワードから不可逆なダイジェストを生成します。
// 平文はこの関数の外へ保存もログ出力もされません。
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify は平文とダイジェストの一致を検証します。
// 不一致・ダイジェスト不正のいずれも false を返し、エラーは返しません
// （失敗理由の違いを呼び出し側へ漏らさないため）。
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
