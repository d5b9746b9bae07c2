// Package logging — zap-логгер сервиса записи и поля запроса из контекста.
package logging

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Spok95/volunteer-slots/internal/ctxutil"
)

const service = "volunteer-slots"

type Log struct {
	Base   *zap.Logger
	Level  zap.AtomicLevel
	Closer func()
}

// Options — уровень, окружение (prod → JSON) и релиз для поля release.
type Options struct {
	Level   string
	Env     string
	Release string
}

// Init — prod: JSON без цвета, dev: консоль. Неизвестный уровень → info.
func Init(o Options) (*Log, error) {
	lvl, ok := ParseLevel(o.Level)
	if !ok {
		lvl = zapcore.InfoLevel
	}
	level := zap.NewAtomicLevelAt(lvl)

	var cfg zap.Config
	if strings.EqualFold(o.Env, "prod") {
		cfg = zap.NewProductionConfig()
		// счётчики в метриках, сэмплинг логов только мешает разбору конфликтов бронирования
		cfg.Sampling = nil
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build(zap.AddStacktrace(zap.ErrorLevel))
	if err != nil {
		return nil, err
	}
	fields := []zap.Field{zap.String("service", service)}
	if o.Release != "" {
		fields = append(fields, zap.String("release", o.Release))
	}
	base = base.With(fields...)
	return &Log{
		Base:   base,
		Level:  level,
		Closer: func() { _ = base.Sync() },
	}, nil
}

// ParseLevel — уровень zap по имени; false, если имя пустое или неизвестное.
func ParseLevel(s string) (zapcore.Level, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil || s == "" {
		return zapcore.InfoLevel, false
	}
	return l, true
}

// Named — логгер компонента.
func (l *Log) Named(component string) *zap.Logger {
	return l.Base.Named(component)
}

// FromContext — логгер с полями запроса: user_id, chat_id, op.
func FromContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		log = zap.NewNop()
	}
	var fields []zap.Field
	if id, ok := ctxutil.UserID(ctx); ok {
		fields = append(fields, zap.Stringer("user_id", id))
	}
	if id, ok := ctxutil.ChatID(ctx); ok {
		fields = append(fields, zap.Int64("chat_id", id))
	}
	if op, ok := ctxutil.Op(ctx); ok {
		fields = append(fields, zap.String("op", op))
	}
	if len(fields) == 0 {
		return log
	}
	return log.With(fields...)
}
