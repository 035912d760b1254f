// Package wayforpay implements the parts of the WayForPay protocol the top-up
// flow needs: signed purchase forms, callback verification and the
// acknowledgment that stops provider retries.
package wayforpay

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"strings"
)

var ErrInvalidSignature = errors.New("invalid_signature")

// Signer computes HMAC-MD5 signatures over ';'-joined field tuples.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) Signer {
	return Signer{secret: []byte(secret)}
}

func (s Signer) Sign(fields ...string) string {
	mac := hmac.New(md5.New, s.secret)
	mac.Write([]byte(strings.Join(fields, ";")))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s Signer) Verify(signature string, fields ...string) error {
	if len(s.secret) == 0 || signature == "" {
		return ErrInvalidSignature
	}
	expected := s.Sign(fields...)
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}
