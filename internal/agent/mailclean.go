package agent

import (
	"regexp"
	"strings"
)

// replyIndicators mark the start of quoted history in an email body.
var replyIndicators = []*regexp.Regexp{
	regexp.MustCompile(`(?i)On\s+.*wrote:`),
	regexp.MustCompile(`(?i)From:\s+.*Sent:`),
	regexp.MustCompile(`(?i)-+\s*Original Message\s*-+`),
	regexp.MustCompile(`(?i)-+\s*Forwarded message\s*-+`),
	regexp.MustCompile(`________________________________`),
}

// cleanEmailBody strips quoted replies and forwarded-message history so
// only the latest message is summarized.
func cleanEmailBody(body string) string {
	var cleaned []string
	for _, line := range strings.Split(body, "\n") {
		quoteStart := false
		for _, indicator := range replyIndicators {
			if indicator.MatchString(line) {
				quoteStart = true
				break
			}
		}
		if quoteStart {
			break
		}
		if strings.HasPrefix(strings.TrimSpace(line), ">") {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}
