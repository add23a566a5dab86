package safe

import (
	"log/slog"
	"runtime/debug"
	"strings"
)

// Run 在独立 goroutine 中执行 fn，panic 会被捕获并记录堆栈
func Run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic recovered",
				slog.Any("recover", r),
				slog.String("component", "safe.Run"),
				slog.String("stack", stackTrace()),
			)
		}
	}()

	fn()
}

func stackTrace() string {
	lines := strings.Split(string(debug.Stack()), "\n")

	var formatted []string
	formatted = append(formatted, "Stack trace:")
	for i, line := range lines {
		if i >= 24 {
			formatted = append(formatted, "  ... (truncated)")
			break
		}
		line = strings.TrimSpace(line)
		if line != "" {
			formatted = append(formatted, "  "+line)
		}
	}
	return strings.Join(formatted, "\n")
}
