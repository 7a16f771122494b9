package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/order_report/appctx"
	"github.com/google/uuid"
)

var (
	ContextKeyRunId         = appctx.ContextKeyRunId
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyUserName      = appctx.ContextKeyUserName
)

func GetRunIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRunId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetRunIdInContext(ctx context.Context, runId string) context.Context {
	return appctx.Set(ctx, ContextKeyRunId, runId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetUserNameInContext(ctx context.Context, userName string) context.Context {
	return appctx.Set(ctx, ContextKeyUserName, userName)
}

// NewRunContext stamps a fresh run id on ctx. The run id doubles as the
// correlation id unless one is already present.
func NewRunContext(ctx context.Context) (context.Context, string) {
	runId := uuid.NewString()
	ctx = SetRunIdInContext(ctx, runId)
	if _, ok := GetCorrelationIdFromContext(ctx); !ok {
		ctx = SetCorrelationIdInContext(ctx, runId)
	}
	return ctx, runId
}
