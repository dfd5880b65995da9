//go:build blst

// This file swaps the G1 arithmetic backend for supranational/blst.
//
// Build with: go build -tags blst ./...
package crypto

import (
	blst "github.com/supranational/blst/bindings/go"
)

const blstP1SerializedLength = 96

// decodeG1 converts the padded 128-byte encoding into blst's 96-byte
// uncompressed serialization, which checks field range and curve membership.
func decodeG1(in []byte) (*blst.P1Affine, error) {
	buf := make([]byte, blstP1SerializedLength)
	copy(buf[:48], in[16:BLSFieldElementLength])
	copy(buf[48:], in[BLSFieldElementLength+16:])
	// Canonical elements are below 2^381; flag bits must be clear.
	if buf[0]&0xe0 != 0 || buf[48]&0xe0 != 0 {
		return nil, ErrBLSFieldElement
	}
	if isZero(buf) {
		buf[0] = 0x40
	}
	p := new(blst.P1Affine).Deserialize(buf)
	if p == nil {
		return nil, ErrBLSPointNotOnCurve
	}
	return p, nil
}

func g1Add(a, b []byte) ([]byte, error) {
	p0, err := decodeG1(a)
	if err != nil {
		return nil, err
	}
	p1, err := decodeG1(b)
	if err != nil {
		return nil, err
	}
	var agg blst.P1Aggregate
	agg.Add(p0, false)
	agg.Add(p1, false)
	ser := agg.ToAffine().Serialize()

	out := make([]byte, BLSG1PointLength)
	if ser[0]&0x40 != 0 {
		return out, nil
	}
	copy(out[16:BLSFieldElementLength], ser[:48])
	copy(out[BLSFieldElementLength+16:], ser[48:])
	return out, nil
}
