package quiz

import (
	"strings"
	"time"
)

// markdownReplacer escapes every character reserved by Telegram's MarkdownV2
var markdownReplacer = func() *strings.Replacer {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	pairs := make([]string, 0, len(specialChars)*2)
	for _, char := range specialChars {
		pairs = append(pairs, char, "\\"+char)
	}
	return strings.NewReplacer(pairs...)
}()

// EscapeMarkdown escapes text for MarkdownV2 so it renders literally
func EscapeMarkdown(text string) string {
	return markdownReplacer.Replace(text)
}

// ChoiceLabel returns the letter for a 0-based choice position: 0 -> "A"
func ChoiceLabel(i int) string {
	if i < 0 || i >= 26 {
		return "?"
	}
	return string(rune('A' + i))
}

// SplitElapsed floors d to whole seconds and splits it into minutes and seconds
func SplitElapsed(d time.Duration) (minutes, seconds int) {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return total / 60, total % 60
}
