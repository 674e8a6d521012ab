// Package inbox — auth.go: owner-авторизация для привилегированных команд.
// Владелец бота может не быть модератором сабреддита; пароль проверяется
// по Argon2id-хешу из конфигурации, успешный вход открывает сессию.
// Защита от перебора: 3 неудачные попытки = блокировка на 1 час.
package inbox

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"

	"deltabot/internal/common"
)

// Auth управляет owner-сессиями. Состояние в памяти: сессии не переживают
// перезапуск, владельцу придётся авторизоваться заново.
type Auth struct {
	passwordHash string

	mu       sync.Mutex
	sessions map[string]time.Time   // username → истечение сессии
	attempts map[string][]time.Time // username → неудачные попытки
}

// NewAuth создаёт owner-авторизацию. Пустой хеш = выключена.
func NewAuth(passwordHash string) *Auth {
	return &Auth{
		passwordHash: passwordHash,
		sessions:     make(map[string]time.Time),
		attempts:     make(map[string][]time.Time),
	}
}

// Authenticate проверяет пароль и при успехе открывает сессию на 24 часа.
func (a *Auth) Authenticate(username, password string) error {
	if a.passwordHash == "" {
		return common.ErrAuthDisabled
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cutoff := time.Now().Add(-1 * time.Hour)
	var recent []time.Time
	for _, t := range a.attempts[username] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}
	if len(recent) >= 3 {
		a.attempts[username] = recent
		return common.ErrTooManyAttempts
	}

	if !verifyArgon2id(password, a.passwordHash) {
		a.attempts[username] = append(recent, time.Now())
		return common.ErrWrongPassword
	}

	delete(a.attempts, username)
	a.sessions[username] = time.Now().Add(24 * time.Hour)
	return nil
}

// HasSession проверяет, есть ли у пользователя активная owner-сессия.
func (a *Auth) HasSession(username string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	expiry, ok := a.sessions[username]
	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		delete(a.sessions, username)
		return false
	}
	return true
}

// verifyArgon2id проверяет пароль по хешу в формате
// $argon2id$v=19$m=<mem>,t=<time>,p=<par>$<salt-b64>$<hash-b64>.
func verifyArgon2id(password, encoded string) bool {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var mem, iter uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, iter, mem, par, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
