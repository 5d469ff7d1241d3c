// Package flash はリダイレクトをまたぐ一回限りの通知メッセージを提供します。
// メッセージはセッションに保存され、次の描画時に取り出されて消えます。
package flash

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// メッセージの種別。画面側でスタイルの出し分けに使います。
const (
	CategoryInfo    = "info"
	CategorySuccess = "success"
	CategoryDanger  = "danger"
)

var categories = []string{CategoryInfo, CategorySuccess, CategoryDanger}

// Message は種別付きの通知1件を表します。
type Message struct {
	Category string
	Text     string
}

// Add はメッセージをセッションに積み、セッションを保存します。
func Add(c *gin.Context, category, text string) {
	session := sessions.Default(c)
	session.AddFlash(text, flashKey(category))
	_ = session.Save()
}

// Take は積まれたメッセージを全種別ぶん取り出して消します。
func Take(c *gin.Context) []Message {
	session := sessions.Default(c)
	var messages []Message
	for _, category := range categories {
		for _, v := range session.Flashes(flashKey(category)) {
			if text, ok := v.(string); ok {
				messages = append(messages, Message{Category: category, Text: text})
			}
		}
	}
	if len(messages) > 0 {
		_ = session.Save()
	}
	return messages
}

func flashKey(category string) string {
	return "flash_" + category
}
