package worker

import "github.com/sirupsen/logrus"

// AsynqLogger 把 asynq 内部日志转发到 logrus
type AsynqLogger struct {
	entry *logrus.Entry
}

// NewAsynqLogger 创建 AsynqLogger
func NewAsynqLogger(entry *logrus.Entry) *AsynqLogger {
	return &AsynqLogger{entry: entry}
}

func (l *AsynqLogger) Debug(args ...interface{}) { l.entry.Debug(args...) }
func (l *AsynqLogger) Info(args ...interface{})  { l.entry.Info(args...) }
func (l *AsynqLogger) Warn(args ...interface{})  { l.entry.Warn(args...) }
func (l *AsynqLogger) Error(args ...interface{}) { l.entry.Error(args...) }
func (l *AsynqLogger) Fatal(args ...interface{}) { l.entry.Fatal(args...) }
