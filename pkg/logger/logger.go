// Package logger 基于zap构建结构化日志
//
// 教学要点：
// 1. console格式便于本地阅读，json格式便于ELK等系统采集
// 2. Logger通过构造函数注入，不在业务代码里调用全局函数
// 3. zap.ReplaceGlobals只在main中调用一次，供中间件等无注入点的地方兜底
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置
type Config struct {
	Level        string // debug | info | warn | error
	Format       string // console | json
	Output       string // stdout | stderr | /path/to/file
	EnableCaller bool
}

// New 根据配置创建*zap.Logger
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(defaultString(cfg.Level, "info")))
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}

	var zc zap.Config
	switch defaultString(cfg.Format, "console") {
	case "json":
		zc = zap.NewProductionConfig()
	case "console":
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("无效的日志格式: %s", cfg.Format)
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableCaller = !cfg.EnableCaller
	zc.DisableStacktrace = level > zapcore.DebugLevel

	output := defaultString(cfg.Output, "stdout")
	zc.OutputPaths = []string{output}
	zc.ErrorOutputPaths = []string{"stderr"}

	return zc.Build()
}

// Must 创建Logger，失败时panic（仅用于程序启动阶段）
func Must(cfg Config) *zap.Logger {
	l, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return l
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
