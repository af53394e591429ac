package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	ProfileKeyPrefix = "profile:%d"
	InviteKeyPrefix  = "invite:%s"
	WrappedKeyPrefix = "wrapped:%d:%04d-%02d"
	WSTicketPrefix   = "ws_ticket:%s"
	BlacklistPrefix  = "blacklist:%s"
)

const (
	ProfileTTL = 5 * time.Minute
	InviteTTL  = 10 * time.Minute
	// WrappedLiveTTL applies to the month in progress; finished months use WrappedTTL.
	WrappedLiveTTL = 2 * time.Minute
	WrappedTTL     = 6 * time.Hour
	WSTicketTTL    = 30 * time.Second
)

func ProfileKey(userID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, userID)
}

func InviteKey(code string) string {
	return fmt.Sprintf(InviteKeyPrefix, code)
}

func WrappedKey(companyID uint, year, month int) string {
	return fmt.Sprintf(WrappedKeyPrefix, companyID, year, month)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistPrefix, jti)
}

// Invalidate deletes keys, ignoring a missing client.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateProfiles(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ProfileKey(id))
	}
	Invalidate(ctx, keys...)
}

func InvalidateInvite(ctx context.Context, code string) {
	Invalidate(ctx, InviteKey(code))
}
