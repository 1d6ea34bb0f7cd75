package utils

import (
	"context"

	"github.com/shieldnetlabs/shieldnet_backend/appctx"
)

var (
	ContextKeyToken         = appctx.ContextKeyToken
	ContextKeyClientId      = appctx.ContextKeyClientId
	ContextKeyClientRole    = appctx.ContextKeyClientRole
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyToken)
}

func GetClientIdFromContext(ctx context.Context) (int, bool) {
	return appctx.GetInt(ctx, ContextKeyClientId)
}

func GetClientRoleFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyClientRole)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyToken, token)
}

func SetClientIdInContext(ctx context.Context, clientId int) context.Context {
	return appctx.Set(ctx, ContextKeyClientId, clientId)
}

func SetClientRoleInContext(ctx context.Context, role string) context.Context {
	return appctx.Set(ctx, ContextKeyClientRole, role)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
