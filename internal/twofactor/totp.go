// Package twofactor implements TOTP-based two-factor auth with single-use
// backup codes.
package twofactor

import (
	"crypto/rand"
	"encoding/json"
	"math/big"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	backupCodeCount  = 10
	backupCodeLength = 8
	// No 0/O or 1/I; codes get read off paper.
	backupCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
)

// GenerateSecret creates a fresh TOTP key for an account. The returned key's
// URL is the otpauth:// provisioning URI authenticator apps consume.
func GenerateSecret(issuer, accountEmail string) (*otp.Key, error) {
	return totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountEmail,
	})
}

// VerifyTOTP checks a 6-digit code against the stored secret.
func VerifyTOTP(secret, code string) bool {
	return totp.Validate(code, secret)
}

// GenerateBackupCodes produces the single-use recovery codes handed to the
// user once at enable time.
func GenerateBackupCodes() ([]string, error) {
	codes := make([]string, backupCodeCount)
	for i := range codes {
		buf := make([]byte, backupCodeLength)
		for j := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(backupCodeAlphabet))))
			if err != nil {
				return nil, err
			}
			buf[j] = backupCodeAlphabet[n.Int64()]
		}
		codes[i] = string(buf)
	}
	return codes, nil
}

// EncodeBackupCodes serializes codes for the account row.
func EncodeBackupCodes(codes []string) (string, error) {
	raw, err := json.Marshal(codes)
	return string(raw), err
}

// ConsumeBackupCode removes the matched code from the stored set. Returns the
// remaining set and whether the code was valid. Each code works exactly once.
func ConsumeBackupCode(codesJSON, code string) (string, bool) {
	var codes []string
	if err := json.Unmarshal([]byte(codesJSON), &codes); err != nil {
		return codesJSON, false
	}
	for i, c := range codes {
		if c == code {
			remaining := append(codes[:i:i], codes[i+1:]...)
			raw, err := json.Marshal(remaining)
			if err != nil {
				return codesJSON, false
			}
			return string(raw), true
		}
	}
	return codesJSON, false
}
