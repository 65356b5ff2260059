package pansmart

import (
	"crypto/md5"
	"crypto/sha512"
	"encoding/hex"
	"strings"
)

// HexUpperMD5 returns the MD5 digest of text, hex-encoded and uppercased.
// The cloud API uses this form both for password obfuscation and for
// login-secret chaining.
func HexUpperMD5(text string) string {
	sum := md5.Sum([]byte(text))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

func hexSHA512(text string) string {
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}

// EncodePassword derives the login secret submitted to UsrLogin.
// passwordHash must already be the MD5 form of the account password;
// token is the server-issued value from UsrGetToken and may be empty.
func EncodePassword(username, passwordHash, token string) string {
	mid := passwordHash + username
	if token != "" {
		mid = HexUpperMD5(mid) + token
	}
	return HexUpperMD5(mid)
}

// DeriveDeviceToken computes the per-device credential required on every
// device-status call. It is a pure function of the device identifier: the
// leading identifier segment is split at offset 6, reassembled around the
// type code, hashed, then chained with the trailing equipment segment and
// hashed again. No server input is involved, so the token can always be
// re-derived locally.
func DeriveDeviceToken(deviceID, typeCode string) string {
	segments := strings.Split(deviceID, "_")
	if len(segments) == 0 || len(segments[0]) < 6 {
		return ""
	}
	equip := ""
	if parts := strings.SplitN(deviceID, "_"+typeCode+"_", 2); len(parts) == 2 {
		equip = parts[1]
	}
	inner := hexSHA512(segments[0][6:] + "_" + typeCode + "_" + segments[0][:6])
	return hexSHA512(inner + "_" + equip)
}
