package auth

import (
	"context"
	"strings"
)

type contextKey string

const (
	// ContextKeyWalletAddress is the context key for the authenticated wallet address
	ContextKeyWalletAddress contextKey = "wallet_address"
)

// NormalizeAddress lowercases a hex address for stable map/DB keys. The
// checksummed form is recomputed at display boundaries.
func NormalizeAddress(address string) string {
	return strings.ToLower(address)
}

// WithWalletAddress adds the wallet address to the context
func WithWalletAddress(ctx context.Context, address string) context.Context {
	return context.WithValue(ctx, ContextKeyWalletAddress, NormalizeAddress(address))
}

// WalletAddressFromContext retrieves the wallet address from the context.
// The second return is false for anonymous requests.
func WalletAddressFromContext(ctx context.Context) (string, bool) {
	addr, ok := ctx.Value(ContextKeyWalletAddress).(string)
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}
