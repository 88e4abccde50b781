package schema

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a PascalCase or camelCase Go name to snake_case.
// Examples:
//
//	"UserID" -> "user_id"
//	"CreatedAt" -> "created_at"
//	"Id" -> "id"
//
// Runs of upper-case letters are kept together so "UserID" does not
// become "user_i_d".
func ToSnakeCase(s string) string {
	var result strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i+1 < len(runes) && !unicode.IsUpper(runes[i+1]) && runes[i+1] != '_'
			if i > 0 && (prevLower || nextLower) {
				result.WriteRune('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// ToPascalCase converts a snake_case name to PascalCase.
// Examples:
//
//	"user_id" -> "UserId"
//	"created_at" -> "CreatedAt"
func ToPascalCase(s string) string {
	parts := strings.Split(s, "_")
	for i, part := range parts {
		if len(part) > 0 {
			parts[i] = strings.ToUpper(part[:1]) + part[1:]
		}
	}
	return strings.Join(parts, "")
}
