package airtable

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ruslano69/tdtp-airtable/pkg/adapters"
	"github.com/ruslano69/tdtp-airtable/pkg/core/schema"
)

// EqualsFormula строит filterByFormula вида {field}=<literal>.
// Имя поля с '}' не записывается ссылкой {...}: такой поиск отклоняется
// до запроса.
func EqualsFormula(field string, value any) (string, error) {
	if field == "" || strings.Contains(field, "}") {
		return "", fmt.Errorf("airtable: field name %q cannot be referenced in a formula: %w",
			field, adapters.ErrRejected)
	}
	return "{" + field + "}=" + formulaLiteral(schema.Coerce(value)), nil
}

func formulaLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "BLANK()"
	case string:
		return quote(x)
	case bool:
		if x {
			return "TRUE()"
		}
		return "FALSE()"
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case *big.Int:
		return x.String()
	case time.Time:
		return quote(x.UTC().Format(time.RFC3339))
	default:
		return quote(fmt.Sprint(x))
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
