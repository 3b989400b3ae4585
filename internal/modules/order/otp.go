// README: One-time password generation and verification for delivery handoff.
package order

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// OTPValidity is how long a generated code stays verifiable. Checked at
// verification time only; there is no background sweep.
const OTPValidity = 24 * time.Hour

var (
	ErrNoOTPIssued = errors.New("no OTP generated for this order")
	ErrOTPExpired  = errors.New("OTP has expired")
	ErrOTPMismatch = errors.New("invalid OTP")
)

// GenerateOTP returns a uniformly random 4-digit code. Both parties are
// physically co-located at handoff, so the short code is acceptable given
// the 24-hour validity window.
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		panic("otp: " + err.Error())
	}
	return fmt.Sprintf("%04d", n.Int64())
}

// VerifyOTP checks a candidate code against the order's stored OTP. The
// caller clears the code when the order reaches delivered; this function is
// stateless.
func VerifyOTP(o *Order, candidate string, now time.Time) error {
	if o.DeliveryOTP == nil || o.OTPGeneratedAt == nil {
		return ErrNoOTPIssued
	}
	if now.Sub(*o.OTPGeneratedAt) > OTPValidity {
		return ErrOTPExpired
	}
	if *o.DeliveryOTP != candidate {
		return ErrOTPMismatch
	}
	return nil
}
