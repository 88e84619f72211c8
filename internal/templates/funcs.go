package templates

import (
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// FuncMap returns sprig's text helpers plus the tasklens specific ones.
func FuncMap() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["orDash"] = orDash
	return fm
}

// orDash returns "-" for empty strings.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
