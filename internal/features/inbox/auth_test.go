package inbox

import (
	"encoding/base64"
	"fmt"
	"testing"

	"golang.org/x/crypto/argon2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltabot/internal/common"
)

// testHash собирает Argon2id-хеш с лёгкими параметрами, чтобы тесты
// не жгли процессор.
func testHash(password string) string {
	salt := []byte("0123456789abcdef")
	var mem uint32 = 1024
	var iter uint32 = 1
	var par uint8 = 1
	hash := argon2.IDKey([]byte(password), salt, iter, mem, par, 32)
	return fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		mem, iter, par,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
}

func TestAuthenticate(t *testing.T) {
	a := NewAuth(testHash("secret"))

	require.NoError(t, a.Authenticate("owner", "secret"))
	assert.True(t, a.HasSession("owner"))
	assert.False(t, a.HasSession("stranger"))
}

func TestAuthenticateWrongPassword(t *testing.T) {
	a := NewAuth(testHash("secret"))

	err := a.Authenticate("owner", "nope")
	assert.ErrorIs(t, err, common.ErrWrongPassword)
	assert.False(t, a.HasSession("owner"))
}

func TestAuthenticateRateLimit(t *testing.T) {
	a := NewAuth(testHash("secret"))

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, a.Authenticate("owner", "nope"), common.ErrWrongPassword)
	}
	// четвёртая попытка блокируется, даже с верным паролем
	assert.ErrorIs(t, a.Authenticate("owner", "secret"), common.ErrTooManyAttempts)

	// лимит на пользователя, не глобальный
	require.NoError(t, a.Authenticate("other", "secret"))
}

func TestAuthenticateDisabled(t *testing.T) {
	a := NewAuth("")
	assert.ErrorIs(t, a.Authenticate("owner", "anything"), common.ErrAuthDisabled)
}

func TestVerifyArgon2idMalformed(t *testing.T) {
	assert.False(t, verifyArgon2id("x", ""))
	assert.False(t, verifyArgon2id("x", "$argon2i$v=19$m=1,t=1,p=1$abc$def"))
	assert.False(t, verifyArgon2id("x", "not-a-hash"))
}
