// Package security 提供入库与入模前的输入净化与校验。
package security

import (
	"fmt"
	"regexp"
	"strings"
)

// ErrUnsafe 表示输入未通过安全检查。
type ErrUnsafe struct {
	Reason string
}

func (e *ErrUnsafe) Error() string {
	return fmt.Sprintf("input failed security check: %s", e.Reason)
}

var ctrlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

var sqliPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)';?\s*or\s*'1'='1`),
	regexp.MustCompile(`(?i)';?\s*or\s*\d=\d`),
	regexp.MustCompile(`(?i)\bunion\b\s+\bselect\b`),
	regexp.MustCompile(`(?i)\bdrop\s+table\b`),
	regexp.MustCompile(`(?i)\btruncate\s+table\b`),
	regexp.MustCompile(`(?i)\balter\s+table\b`),
	regexp.MustCompile(`(?i)\bdelete\s+from\b`),
	regexp.MustCompile(`(?i)\binsert\s+into\b`),
	regexp.MustCompile(`(?i)\bupdate\b\s+\w+\s+set\b`),
	regexp.MustCompile(`(?i)\bselect\b\s+\*\s+\bfrom\b`),
}

var promptInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore (?:all|any|the) previous instructions`),
	regexp.MustCompile(`(?i)disregard (?:all|any|the) rules`),
	regexp.MustCompile(`(?i)from now on you (?:are|must|should)`),
	regexp.MustCompile(`(?i)pretend to be`),
	regexp.MustCompile(`(?i)you are (?:now|no longer) (?:a|an)`),
	regexp.MustCompile(`(?i)system prompt`),
	regexp.MustCompile(`(?i)exfiltrate`),
}

var allowedIdentifier = regexp.MustCompile(`^[A-Za-z0-9_.:@-]{1,128}$`)

// SanitizeText 规范化文本：统一换行、去除控制字符、截断到 maxLength。
func SanitizeText(text string, maxLength int) string {
	cleaned := strings.ReplaceAll(text, "\r\n", "\n")
	cleaned = strings.ReplaceAll(cleaned, "\r", "\n")
	cleaned = ctrlChars.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	// 按 rune 截断，字节截断会把多字节字符切坏
	if maxLength > 0 {
		if runes := []rune(cleaned); len(runes) > maxLength {
			cleaned = strings.TrimRight(string(runes[:maxLength]), " \n\t")
		}
	}
	return cleaned
}

// EnsureSafePrompt 净化问题文本；若命中注入特征则返回 ErrUnsafe。
func EnsureSafePrompt(text string, maxLength int) (string, error) {
	sanitized := SanitizeText(text, maxLength)
	if sanitized == "" {
		return "", &ErrUnsafe{Reason: "empty prompt"}
	}
	for _, p := range sqliPatterns {
		if p.MatchString(sanitized) {
			return "", &ErrUnsafe{Reason: p.String()}
		}
	}
	for _, p := range promptInjectionPatterns {
		if p.MatchString(sanitized) {
			return "", &ErrUnsafe{Reason: p.String()}
		}
	}
	return sanitized, nil
}

// SanitizeIdentifier 校验标识符（tenant/profile/user/session/request id）。
func SanitizeIdentifier(value, label string) (string, error) {
	sanitized := SanitizeText(value, 0)
	if !allowedIdentifier.MatchString(sanitized) {
		return "", &ErrUnsafe{Reason: "invalid " + label}
	}
	return sanitized, nil
}

// SanitizeMetadata 净化客户端元数据（IP、User-Agent），空值回退到 fallback。
func SanitizeMetadata(value, fallback string, maxLength int) string {
	sanitized := SanitizeText(value, maxLength)
	if sanitized == "" {
		return fallback
	}
	return sanitized
}
