package chain

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

const (
	lamportsPerSOL = 1_000_000_000

	// pump.fun launches with 793.1M tokens (6 decimals) sellable on the curve.
	initialRealTokenReserves = 793_100_000_000_000

	bondingCurveDiscriminatorLen = 8
	bondingCurveMinLen           = bondingCurveDiscriminatorLen + 5*8 + 1
)

// BondingCurveState is the decoded pump.fun bonding-curve account.
type BondingCurveState struct {
	Address              string
	VirtualTokenReserves uint64
	VirtualSOLReserves   uint64
	RealTokenReserves    uint64
	RealSOLReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// RealSOL returns the SOL deposited into the curve.
func (s *BondingCurveState) RealSOL() float64 {
	return float64(s.RealSOLReserves) / lamportsPerSOL
}

// LiquidityUSD values both sides of the curve at solPriceUSD.
func (s *BondingCurveState) LiquidityUSD(solPriceUSD float64) float64 {
	return 2 * s.RealSOL() * solPriceUSD
}

// Progress returns how far the curve is toward graduation, 0..100.
func (s *BondingCurveState) Progress() float64 {
	if s.Complete {
		return 100
	}
	if s.RealTokenReserves >= initialRealTokenReserves {
		return 0
	}
	sold := initialRealTokenReserves - s.RealTokenReserves
	return float64(sold) * 100 / initialRealTokenReserves
}

// DecodeBondingCurve parses base64 account data of a bonding-curve account.
func DecodeBondingCurve(address, dataB64 string) (*BondingCurveState, error) {
	data, err := base64.StdEncoding.DecodeString(dataB64)
	if err != nil {
		return nil, fmt.Errorf("decode bonding curve data: %w", err)
	}
	if len(data) < bondingCurveMinLen {
		return nil, fmt.Errorf("bonding curve data too short: %d bytes", len(data))
	}

	off := bondingCurveDiscriminatorLen
	next := func() uint64 {
		v := binary.LittleEndian.Uint64(data[off : off+8])
		off += 8
		return v
	}

	s := &BondingCurveState{Address: address}
	s.VirtualTokenReserves = next()
	s.VirtualSOLReserves = next()
	s.RealTokenReserves = next()
	s.RealSOLReserves = next()
	s.TokenTotalSupply = next()
	s.Complete = data[off] != 0
	return s, nil
}
