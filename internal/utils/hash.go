package utils

import (
    "crypto/hmac"
    "crypto/sha256"
    "crypto/subtle"
    "encoding/base64"
    "errors"
    "fmt"
    "unicode/utf8"

    "golang.org/x/crypto/argon2"
)

// Argon2 parameters. Changing any of them changes every digest, so treat them as
// the algorithm version.
const (
    Memory      = 64 * 1024 // 64 MB
    Iterations  = 1
    Parallelism = 4
    KeyLength   = 32
)

// saltContext binds the pepper-derived salt to password hashing only.
const saltContext = "daily-report/employee-password"

var ErrMalformedInput = errors.New("password or pepper is not valid UTF-8")

// HashPassword derives the stored digest for a plaintext password.
// The salt is HMAC-SHA256(pepper, saltContext): the same plaintext and pepper always
// give the same digest, so the digest can be looked up by equality.
// Output format: $argon2id$v=19$m=65536,t=1,p=4$hash
func HashPassword(password, pepper string) (string, error) {
    if !utf8.ValidString(password) || !utf8.ValidString(pepper) {
        return "", ErrMalformedInput
    }

    hash := argon2.IDKey(
        []byte(password),
        pepperSalt(pepper),
        Iterations,
        Memory,
        Parallelism,
        KeyLength,
    )

    encoded := fmt.Sprintf(
        "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
        argon2.Version,
        Memory,
        Iterations,
        Parallelism,
        base64.RawStdEncoding.EncodeToString(hash),
    )

    return encoded, nil
}

// VerifyPassword reports whether password hashes to digest under pepper.
func VerifyPassword(password, pepper, digest string) bool {
    computed, err := HashPassword(password, pepper)
    if err != nil {
        return false
    }

    // Constant-time comparison (prevent timing attacks)
    return subtle.ConstantTimeCompare([]byte(computed), []byte(digest)) == 1
}

func pepperSalt(pepper string) []byte {
    mac := hmac.New(sha256.New, []byte(pepper))
    mac.Write([]byte(saltContext))
    return mac.Sum(nil)
}
