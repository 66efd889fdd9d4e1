package tgui

import "strings"

// Data formats inline callback data as "scope:action".
func Data(scope, action string) string {
	return strings.TrimSpace(scope) + ":" + strings.TrimSpace(action)
}

// Split parses callback data produced by Data. Telegram clients may
// prepend a "\f" marker to callback payloads; it is stripped here.
func Split(data string) (scope, action string) {
	data = strings.TrimPrefix(strings.TrimSpace(data), "\f")
	scope, action, _ = strings.Cut(data, ":")
	return scope, action
}
