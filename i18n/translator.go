package i18n

import (
	"strings"
	"sync"
)

// Translator retrieves localized messages for error codes.
// data provides optional metadata to embed in the message (for example,
// "key"). Placeholders are written as {name}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

func (t dictTranslator) Message(code string, data map[string]string) string {
	var msg string
	switch t.lang {
	case "ja":
		switch code {
		case "invalid_value":
			msg = "フィールド {key} の値を変換できません"
		case "invalid_type":
			msg = "フィールド {key} の型が不正です"
		case "precision":
			msg = "フィールド {key} は指定の精度で表現できません"
		case "required":
			msg = "フィールド {key} はリクエストに必須です"
		case "template":
			msg = "フィールド {key} のテンプレートを展開できません"
		case "route":
			msg = "フィールド {key} のエンドポイントを解決できません"
		case "callback":
			msg = "フィールド {key} の既定値または検証関数が失敗しました"
		case "contract":
			msg = "フィールド {key} の定義が不正です"
		}
	default: // "en"
		switch code {
		case "invalid_value":
			msg = "cannot convert value of field {key}"
		case "invalid_type":
			msg = "invalid type for field {key}"
		case "precision":
			msg = "invalid fixed precision number for field {key}"
		case "required":
			msg = "the field {key} is required for requests"
		case "template":
			msg = "cannot render template for field {key}"
		case "route":
			msg = "cannot resolve endpoint for field {key}"
		case "callback":
			msg = "default or validate function failed for field {key}"
		case "contract":
			msg = "invalid declaration for field {key}"
		}
	}
	if msg == "" {
		return code
	}
	return fill(msg, data)
}

func fill(msg string, data map[string]string) string {
	if len(data) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var (
	mu                           = sync.RWMutex{}
	currentTranslator Translator = dictTranslator{lang: "en"}
)

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	SetTranslator(dictTranslator{lang: lang})
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		tr = dictTranslator{lang: "en"}
	}
	mu.Lock()
	currentTranslator = tr
	mu.Unlock()
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string {
	mu.RLock()
	tr := currentTranslator
	mu.RUnlock()
	return tr.Message(code, data)
}
