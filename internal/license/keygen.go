// internal/license/keygen.go
package license

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime"
	"sort"

	"github.com/keygen-sh/keygen-go/v3"
	"go.uber.org/zap"
)

var (
	ErrMissingKey = errors.New("license key is empty")
	ErrExpired    = errors.New("license has expired")
)

// Gate is checked once before the service starts accepting work.
type Gate interface {
	Check(ctx context.Context, licenseKey string) error
}

// Open is a Gate that admits every caller; used when no license is configured.
type Open struct{}

func (Open) Check(context.Context, string) error { return nil }

// KeygenGate validates and activates licenses with Keygen, binding them to
// this machine's fingerprint.
type KeygenGate struct {
	logger      *zap.Logger
	fingerprint func() (string, error)
}

// NewKeygenGate configures the Keygen client for account and product.
func NewKeygenGate(accountID, productID, productToken string, logger *zap.Logger) *KeygenGate {
	keygen.Account = accountID
	keygen.Product = productID
	keygen.Token = productToken

	return &KeygenGate{
		logger:      logger.Named("license"),
		fingerprint: Fingerprint,
	}
}

// Check validates licenseKey, activating this machine when the license has
// not been activated yet.
func (g *KeygenGate) Check(ctx context.Context, licenseKey string) error {
	if licenseKey == "" {
		return ErrMissingKey
	}
	g.logger.Info("Validating license", zap.String("key", Mask(licenseKey)))

	fingerprint, err := g.fingerprint()
	if err != nil {
		return fmt.Errorf("failed to generate machine fingerprint: %w", err)
	}

	keygen.LicenseKey = licenseKey
	lic, err := keygen.Validate(ctx, fingerprint)
	switch {
	case errors.Is(err, keygen.ErrLicenseNotActivated):
		g.logger.Info("License not activated, attempting activation")
		machine, activateErr := lic.Activate(ctx, fingerprint)
		if activateErr != nil {
			return fmt.Errorf("failed to activate license: %w", activateErr)
		}
		g.logger.Info("License activated",
			zap.String("machine_id", machine.ID),
			zap.String("fingerprint", fingerprint))
	case errors.Is(err, keygen.ErrLicenseExpired):
		return ErrExpired
	case err != nil:
		return fmt.Errorf("license validation failed: %w", err)
	}
	if lic == nil {
		return errors.New("license not found")
	}

	g.logger.Info("License valid", zap.String("license_id", lic.ID))
	return nil
}

// Mask hides all but the first characters of a license key.
func Mask(key string) string {
	const visible = 8
	if len(key) <= visible {
		return "****"
	}
	return key[:visible] + "..."
}

// Fingerprint derives a stable machine id from the hostname, the hardware
// addresses of active interfaces and the OS.
func Fingerprint() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", err
	}
	interfaces, err := net.Interfaces()
	if err != nil {
		return "", err
	}
	var macs []string
	for _, iface := range interfaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" {
			macs = append(macs, mac)
		}
	}
	return fingerprintOf(hostname, macs, runtime.GOOS), nil
}

func fingerprintOf(hostname string, macs []string, goos string) string {
	sorted := append([]string(nil), macs...)
	sort.Strings(sorted)
	primary := "none"
	if len(sorted) > 0 {
		primary = sorted[0]
	}
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s", hostname, primary, goos)))
	return fmt.Sprintf("%x", hash)
}
