package todo

// Error は利用者へ提示できる業務エラーを表します。
// Code はAPIレスポンスやログで利用し、Message は画面表示に利用します。
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is は errors.Is でコードの一致を判定できるようにします。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	// ErrDuplicateUsername は登録時のユーザー名重複を表します。
	ErrDuplicateUsername = &Error{Code: "DUPLICATE_USERNAME", Message: "そのユーザー名は既に使われています。別の名前を選んでください。"}
	// ErrInvalidCredentials はログイン失敗を表します。
	// ユーザー不存在とパスワード不一致を区別しない単一のメッセージです。
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "ユーザー名またはパスワードが正しくありません。"}
	// ErrInvalidInput は入力値の形式不正を表します。
	ErrInvalidInput = &Error{Code: "INVALID_INPUT", Message: "入力内容が正しくありません。"}
	// ErrNotFound は対象リソースの不存在を表します。
	ErrNotFound = &Error{Code: "NOT_FOUND", Message: "対象が見つかりませんでした。"}
	// ErrForbidden は所有者以外による操作を表します。
	ErrForbidden = &Error{Code: "FORBIDDEN", Message: "この操作を行う権限がありません。"}
)

// invalidInput はメッセージを差し替えた INVALID_INPUT エラーを作ります。
// errors.Is(err, ErrInvalidInput) はコード一致で真になります。
func invalidInput(message string) *Error {
	return &Error{Code: ErrInvalidInput.Code, Message: message}
}
