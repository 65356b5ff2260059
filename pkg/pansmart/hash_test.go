package pansmart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHexUpperMD5(t *testing.T) {
	assert := assert.New(t)

	digest := HexUpperMD5("lorem")
	assert.Equal(len(digest), 32, "digest length")
	assert.Equal(digest, HexUpperMD5("lorem"), "deterministic")
	// well-known md5("") value, uppercased
	assert.Equal("D41D8CD98F00B204E9800998ECF8427E", HexUpperMD5(""))
}

func TestEncodePasswordWithoutToken(t *testing.T) {
	assert := assert.New(t)

	pwdHash := HexUpperMD5("hunter2")
	encoded := EncodePassword("user@example.com", pwdHash, "")
	assert.Equal(HexUpperMD5(pwdHash+"user@example.com"), encoded, "single round when no token")
}

func TestEncodePasswordWithToken(t *testing.T) {
	assert := assert.New(t)

	pwdHash := HexUpperMD5("hunter2")
	encoded := EncodePassword("user@example.com", pwdHash, "tok123")
	expected := HexUpperMD5(HexUpperMD5(pwdHash+"user@example.com") + "tok123")
	assert.Equal(expected, encoded, "chained round with token")
}

func TestDeriveDeviceTokenDeterministic(t *testing.T) {
	assert := assert.New(t)

	id := "ABC123XYZ_0100_8765"
	first := DeriveDeviceToken(id, "0100")
	second := DeriveDeviceToken(id, "0100")
	assert.NotEmpty(first)
	assert.Equal(first, second, "deterministic")

	// sha512 chain is 128 hex chars
	assert.Equal(128, len(first))
}

func TestDeriveDeviceTokenSensitivity(t *testing.T) {
	assert := assert.New(t)

	base := DeriveDeviceToken("ABC123XYZ_0100_8765", "0100")
	changedSerial := DeriveDeviceToken("ABD123XYZ_0100_8765", "0100")
	changedEquip := DeriveDeviceToken("ABC123XYZ_0100_8766", "0100")
	assert.NotEqual(base, changedSerial, "serial segment affects token")
	assert.NotEqual(base, changedEquip, "equipment segment affects token")
}
