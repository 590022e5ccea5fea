// Package steamid converts the platform's 64-bit account identifiers to
// and from the legacy text forms used in logs, profile URLs, and the
// moderation webhook payload.
package steamid

import "strconv"

// ID2 formats x in the legacy STEAM_1: form: "STEAM_1:" + authServer + ":" + accountNumber,
// derived from the low 32 bits of x.
func ID2(x uint64) string {
	account := uint64(x & 0xFFFFFFFF)
	authServer := account & 1
	accountNumber := (account - authServer) / 2
	return "STEAM_1:" + strconv.FormatUint(authServer, 10) + ":" + strconv.FormatUint(accountNumber, 10)
}

// ID3 formats x in the modern [U:1:accountId] form.
func ID3(x uint64) string {
	accountID := uint32(x & 0xFFFFFFFF)
	return "[U:1:" + strconv.FormatUint(uint64(accountID), 10) + "]"
}

// ProfileURL builds the canonical community profile link for x.
func ProfileURL(x uint64) string {
	return "https://steamcommunity.com/profiles/" + strconv.FormatUint(x, 10)
}

// AccountID returns the low 32 bits of x, the per-account portion of the
// 64-bit id.
func AccountID(x uint64) uint32 {
	return uint32(x & 0xFFFFFFFF)
}

// Synthetic derives a 64-bit id from a bare 32-bit account id using the
// fixed bit flags preserved for persisted commend/report target
// compatibility: (1<<56)|(1<<52)|(1<<32)|accountId. Whether this matches
// the platform's canonical id for every account type is unverified; it
// is kept exactly as the source encodes it.
func Synthetic(accountID uint32) uint64 {
	return (uint64(1) << 56) | (uint64(1) << 52) | (uint64(1) << 32) | uint64(accountID)
}
