package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger 各组件统一持有的结构化日志句柄，带 service 字段
type Logger = *logrus.Entry

// New 创建 JSON 格式的 logrus 日志器并附加 service 字段
func New(service string) Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(Level())
	return l.WithField("service", service)
}

// Level 从 LOG_LEVEL 解析日志级别，默认 info
func Level() logrus.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
