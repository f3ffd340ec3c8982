package handler

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/pricing"
)

// TemplateFuncs returns a FuncMap with custom template functions
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"sub": func(a, b int) int {
			return a - b
		},
		"year": func() int {
			return time.Now().Year()
		},
		"vnd": pricing.FormatVND,
		"seq": func(n int) []int {
			s := make([]int, n)
			for i := range s {
				s[i] = i + 1
			}
			return s
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02/01/2006 15:04")
		},
		"percent": func(d decimal.Decimal) string {
			return d.StringFixedBank(0) + "%"
		},
		"statusClass": func(s domain.OrderStatus) string {
			return "status-" + string(s)
		},
		"query": func(pairs ...interface{}) template.URL {
			q := url.Values{}
			for i := 0; i+1 < len(pairs); i += 2 {
				v := fmt.Sprint(pairs[i+1])
				if v == "" || v == "0" {
					continue
				}
				q.Set(fmt.Sprint(pairs[i]), v)
			}
			if len(q) == 0 {
				return ""
			}
			return template.URL("?" + q.Encode())
		},
		"dict": func(pairs ...interface{}) map[string]interface{} {
			m := make(map[string]interface{}, len(pairs)/2)
			for i := 0; i+1 < len(pairs); i += 2 {
				m[fmt.Sprint(pairs[i])] = pairs[i+1]
			}
			return m
		},
		"initial": func(s string) string {
			s = strings.TrimSpace(s)
			if s == "" {
				return "?"
			}
			return strings.ToUpper(string([]rune(s)[:1]))
		},
	}
}
