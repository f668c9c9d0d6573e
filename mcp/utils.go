package mcp

import (
	"fmt"
	"strconv"
	"strings"
)

// toString renders a loosely typed tool argument. Numbers arrive as float64
// from JSON and are rendered without an exponent.
func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
