package channel

import (
	"fmt"
	"log/slog"
	"strings"
)

// libLogger routes the SDKs' printf-style logging into slog at debug level.
// It satisfies slack-go's Output logger and telegram-bot-api's BotLogger.
type libLogger struct {
	logger *slog.Logger
	lib    string
}

func newLibLogger(logger *slog.Logger, lib string) *libLogger {
	return &libLogger{logger: logger, lib: lib}
}

func (l *libLogger) Output(_ int, s string) error {
	l.logger.Debug(strings.TrimSpace(s), "lib", l.lib)
	return nil
}

func (l *libLogger) Println(v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintln(v...)), "lib", l.lib)
}

func (l *libLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "lib", l.lib)
}
