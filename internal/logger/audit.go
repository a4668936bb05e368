package logger

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Audit writes one audit statement for a mutating call.
// action labels the call (e.g. "auth.addUser"), msg describes the outcome.
func Audit(level zerolog.Level, action, msg string) {
	log.WithLevel(level).Str("audit", action).Msg(msg)
}

// AuditResult audits ok at info level and a failure at warn level.
func AuditResult(ok bool, action, msg string) {
	level := zerolog.InfoLevel
	if !ok {
		level = zerolog.WarnLevel
		msg += " failed"
	}

	Audit(level, action, msg)
}
