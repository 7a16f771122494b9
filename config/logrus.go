package config

import (
	"context"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/order_report/appctx"
	"github.com/sirupsen/logrus"
)

var (
	logg *logrus.Logger
)

func GetLogger() *logrus.Logger {
	return logg
}

func init() {
	logg = logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetLevel(logLevelFromEnv())
	logg.SetOutput(os.Stdout)
}

// LOG_LEVEL accepts any logrus level name; unknown values fall back to info.
func logLevelFromEnv() logrus.Level {
	v := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if v == "" {
		return logrus.InfoLevel
	}
	lvl, err := logrus.ParseLevel(v)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// RunLogger returns an entry tagged with the run id and user name carried by ctx, if any.
func RunLogger(ctx context.Context) *logrus.Entry {
	entry := logrus.NewEntry(logg)
	if runId, ok := appctx.GetString(ctx, appctx.ContextKeyRunId); ok {
		entry = entry.WithField("run_id", runId)
	}
	if userName, ok := appctx.GetString(ctx, appctx.ContextKeyUserName); ok {
		entry = entry.WithField("user", userName)
	}
	return entry
}

func LogError(logger *logrus.Logger, moduleName string, funcName string, context string, data any, err error) {
	if data != nil {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
			"data":     data,
		}).Error(err.Error())
	} else {
		logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"funcName": funcName,
			"context":  context,
		}).Error(err.Error())
	}
}
