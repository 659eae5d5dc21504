package notify

import "strings"

// escapeMarkdown 转义 Telegram Markdown 格式中的特殊字符
func escapeMarkdown(input string) string {
	replacer := strings.NewReplacer(
		"*", "\\*",
		"_", "\\_",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(input)
}
