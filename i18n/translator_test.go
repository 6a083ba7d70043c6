package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslator_DefaultAndJapanese(t *testing.T) {
	// default is en
	assert.Equal(t, "the field age is required for requests", T("required", map[string]string{"key": "age"}))

	SetLanguage("ja")
	msg := T("required", map[string]string{"key": "age"})
	assert.NotEqual(t, "the field age is required for requests", msg)
	assert.Contains(t, msg, "age")

	// reset to en
	SetLanguage("en")
}

func TestTranslator_UnknownCodeFallsBackToCode(t *testing.T) {
	assert.Equal(t, "no_such_code", T("no_such_code", nil))
}

type upper struct{}

func (upper) Message(code string, data map[string]string) string { return "X:" + code }

func TestSetTranslator_CustomAndReset(t *testing.T) {
	SetTranslator(upper{})
	assert.Equal(t, "X:required", T("required", nil))

	SetTranslator(nil)
	assert.Equal(t, "invalid type for field {key}", T("invalid_type", nil))
}
