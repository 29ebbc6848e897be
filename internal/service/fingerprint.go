package service

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"factcheck_gateway/internal/factcheck"
)

const (
	MaxClaimLength     = 500
	FactCheckKeyPrefix = "factcheck:"
)

// NormalizeClaim приводит текст утверждения к отпечатку: нижний регистр,
// схлопнутые пробелы, не длиннее MaxClaimLength символов.
func NormalizeClaim(claimText string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(claimText)), " ")
	normalized = factcheck.Truncate(normalized, MaxClaimLength)
	// после обрезки на конце может остаться пробел
	return strings.TrimRight(normalized, " ")
}

// FactCheckKey returns the cache key for a normalized claim.
func FactCheckKey(normalizedClaim string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(normalizedClaim))))
	return FactCheckKeyPrefix + hex.EncodeToString(sum[:])
}
