package todo

import "unicode/utf8"

// ValidateCredentials は登録入力の形式だけを検証します。
// ユーザー名の重複のようなストア依存の検査は UserStore.Register が行います。
func ValidateCredentials(username, password string) error {
	n := utf8.RuneCountInString(username)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return invalidInput("ユーザー名は4文字以上25文字以内で入力してください。")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return invalidInput("パスワードは6文字以上で入力してください。")
	}
	return nil
}
