package summary

import "strings"

const fallbackMaxChars = 200

// fallbackSummary 无 LLM 时的兜底：压缩空白后按字符截断
func fallbackSummary(description string) string {
	clean := strings.Join(strings.Fields(description), " ")
	if clean == "" {
		return "New episode available. Check it out!"
	}
	rs := []rune(clean)
	if len(rs) > fallbackMaxChars {
		return string(rs[:fallbackMaxChars-3]) + "..."
	}
	return clean
}
