package atengine

import (
	"fmt"
	"log/slog"
)

// DebugFunc is the variadic logging sink from §6's configuration record
// (at_conf_t.debug). It receives a pre-formatted line; callers that want
// printf-style formatting should format before calling, matching the
// original's `(*fmt, ...)` shape collapsed to Go's preferred "format once"
// convention.
type DebugFunc func(line string)

// SlogDebug adapts a *slog.Logger into a DebugFunc, logging every line at
// Debug level under the "at" component. This is the default Config.Debug
// when none is supplied, and produces exactly the four trace shapes §6
// requires for interoperability with existing test harnesses:
//
//	"->\r\n<cmd>\r\n"   outgoing command
//	"<-\r\n<buf>\r\n"   accepted response
//	"<=\r\n<line>\r\n"  matched URC
//	"<line>\r\n"        unmatched line
func SlogDebug(logger *slog.Logger) DebugFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(line string) {
		logger.Debug(line, "component", "at")
	}
}

func noopDebug(string) {}

func traceOutgoing(d DebugFunc, cmd string) {
	if d != nil {
		d(fmt.Sprintf("->\r\n%s\r\n", cmd))
	}
}

func traceIncoming(d DebugFunc, buf string) {
	if d != nil {
		d(fmt.Sprintf("<-\r\n%s\r\n", buf))
	}
}

func traceURC(d DebugFunc, line string) {
	if d != nil {
		d(fmt.Sprintf("<=\r\n%s\r\n", line))
	}
}

func traceUnmatched(d DebugFunc, line string) {
	if d != nil {
		d(fmt.Sprintf("%s\r\n", line))
	}
}
