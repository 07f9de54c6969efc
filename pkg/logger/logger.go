package logger

import (
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string `env:"LOG_LEVEL"`
	Filename   string `env:"LOG_FILENAME"`
	MaxSize    int    `env:"LOG_MAX_SIZE"` // 单位MB
	MaxAge     int    `env:"LOG_MAX_AGE"`  // 单位天
	MaxBackups int    `env:"LOG_MAX_BACKUPS"`
}

var global *zap.Logger = zap.NewNop()

// Init 初始化全局日志实例
// 配置了 Filename 时同时写入滚动文件和标准输出，否则只写标准输出
func Init(cfg LogConfig) error {
	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var syncer zapcore.WriteSyncer = zapcore.AddSync(os.Stdout)
	if cfg.Filename != "" {
		fileSyncer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxAge:     cfg.MaxAge,
			MaxBackups: cfg.MaxBackups,
		})
		syncer = zapcore.NewMultiWriteSyncer(fileSyncer, zapcore.AddSync(os.Stdout))
	}

	core := zapcore.NewCore(encoder, syncer, level)
	global = zap.New(core, zap.AddCaller())
	return nil
}

// L 返回全局日志实例
func L() *zap.Logger { return global }

func Debug(msg string, fields ...zap.Field) { global.Debug(msg, fields...) }
func Info(msg string, fields ...zap.Field)  { global.Info(msg, fields...) }
func Warn(msg string, fields ...zap.Field)  { global.Warn(msg, fields...) }
func Error(msg string, fields ...zap.Field) { global.Error(msg, fields...) }

// Sync 刷新缓冲的日志
func Sync() { _ = global.Sync() }
