package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gosimple/slug"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateReferralCode creates a random referral code of the given length
func GenerateReferralCode(length int) string {
	result := make([]byte, length)
	for i := range result {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		result[i] = codeCharset[n.Int64()]
	}
	return string(result)
}

// NormalizeReferralCode trims and uppercases a user-supplied referral code
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateLedgerReference creates a unique reference for a rifas ledger entry.
// Deterministic prefixes (e.g. "submission:<id>:reward") make credits
// idempotent; callers that need uniqueness per call add a random suffix here.
func GenerateLedgerReference(prefix string) string {
	timestamp := time.Now().Format("20060102150405")
	return strings.ToUpper(fmt.Sprintf("%s_%s_%s", prefix, timestamp, GenerateReferralCode(8)))
}

// MissionSlug builds a URL-safe slug for a mission title with a short random
// suffix to keep slugs unique across advertisers reusing titles
func MissionSlug(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "mission"
	}
	return fmt.Sprintf("%s-%s", base, strings.ToLower(GenerateReferralCode(6)))
}
