package chain

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ValidateAddress checks that addr is a base58-encoded 32-byte public key.
func ValidateAddress(addr string) error {
	raw, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddress, addr, err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, addr, len(raw))
	}
	return nil
}

// DerivePDA finds the program-derived address for seeds under programID.
// Returns "" if no bump yields an off-curve point.
func DerivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 64+len(programID))
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)

		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}

	return ""
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// BondingCurveAddress derives the pump.fun bonding-curve account of mint.
func BondingCurveAddress(mint string) (string, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil || len(mintBytes) != 32 {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, mint)
	}
	programID, err := base58.Decode(PumpFun)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	pda := DerivePDA([][]byte{[]byte("bonding-curve"), mintBytes}, programID)
	if pda == "" {
		return "", fmt.Errorf("no bonding curve address for %s", mint)
	}
	return pda, nil
}
