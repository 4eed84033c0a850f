package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/esteira_backend/appctx"
)

// Alias the shared context key type so code outside utils can keep using it.
type contextKey = appctx.ContextKey

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyOperatorId    = appctx.ContextKeyOperatorId
	ContextKeyOperatorName  = appctx.ContextKeyOperatorName
	ContextKeyUsername      = appctx.ContextKeyUsername
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyIsAdmin       = appctx.ContextKeyIsAdmin
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetOperatorIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyOperatorId)
}

func GetOperatorNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyOperatorName)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetIsAdminFromContext(ctx context.Context) bool {
	v, ok := appctx.GetBool(ctx, ContextKeyIsAdmin)
	return ok && v
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetOperatorIdInContext(ctx context.Context, operatorId int) context.Context {
	return appctx.Set(ctx, ContextKeyOperatorId, operatorId)
}

func SetOperatorNameInContext(ctx context.Context, name string) context.Context {
	return appctx.Set(ctx, ContextKeyOperatorName, name)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetIsAdminInContext(ctx context.Context, isAdmin bool) context.Context {
	return appctx.Set(ctx, ContextKeyIsAdmin, isAdmin)
}
