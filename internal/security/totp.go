package security

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/atinyakov/authkeeper/internal/models"
)

// qrSize is the edge length in pixels of the rendered QR code.
const qrSize = 200

// TOTPProvider generates RFC 6238 secrets and verifies 6-digit codes
// with a ±1 step (30s) tolerance.
type TOTPProvider struct {
	Issuer string
	Skew   uint
	// Now is the clock used for validation. Defaults to time.Now.
	Now func() time.Time
}

// NewTOTPProvider returns a provider labelling keys with issuer.
func NewTOTPProvider(issuer string) *TOTPProvider {
	return &TOTPProvider{Issuer: issuer, Skew: 1, Now: time.Now}
}

// Generate creates a fresh secret for accountName along with its
// provisioning URI and a PNG data URL of the QR code.
func (p *TOTPProvider) Generate(accountName string) (*models.MFASetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.Issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}

	img, err := key.Image(qrSize, qrSize)
	if err != nil {
		return nil, fmt.Errorf("render qr code: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}

	return &models.MFASetup{
		Secret:          key.Secret(),
		ProvisioningURI: key.URL(),
		QRCodeURL:       "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}

// Validate reports whether code is valid for secret at the current time.
// Codes of the wrong length are simply invalid; an undecodable secret is an error.
func (p *TOTPProvider) Validate(code, secret string) (bool, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	ok, err := totp.ValidateCustom(code, secret, now().UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      p.Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if errors.Is(err, otp.ErrValidateInputInvalidLength) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("validate totp code: %w", err)
	}
	return ok, nil
}
