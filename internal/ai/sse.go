package ai

import "strings"

const (
	sseDataPrefix   = "data: "
	sseDoneSentinel = "[DONE]"
)

// sseData extracts the payload from a server-sent-event line. Returns false
// for blank lines, comments, and anything that is not a data line.
func sseData(line string) (string, bool) {
	if !strings.HasPrefix(line, sseDataPrefix) {
		return "", false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
	if data == "" {
		return "", false
	}
	return data, true
}
