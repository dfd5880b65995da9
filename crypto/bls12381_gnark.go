//go:build !blst

package crypto

import (
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
)

func decodeG1(in []byte) (*bls12381.G1Affine, error) {
	x, err := decodeFp(in[:BLSFieldElementLength])
	if err != nil {
		return nil, err
	}
	y, err := decodeFp(in[BLSFieldElementLength:])
	if err != nil {
		return nil, err
	}
	p := &bls12381.G1Affine{X: x, Y: y}
	if !p.IsOnCurve() {
		return nil, ErrBLSPointNotOnCurve
	}
	return p, nil
}

func decodeFp(in []byte) (fp.Element, error) {
	var buf [fp.Bytes]byte
	copy(buf[:], in[16:])
	e, err := fp.BigEndian.Element(&buf)
	if err != nil {
		return fp.Element{}, ErrBLSFieldElement
	}
	return e, nil
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
	p0.Add(p0, p1)

	out := make([]byte, BLSG1PointLength)
	fp.BigEndian.PutElement((*[fp.Bytes]byte)(out[16:BLSFieldElementLength]), p0.X)
	fp.BigEndian.PutElement((*[fp.Bytes]byte)(out[BLSFieldElementLength+16:]), p0.Y)
	return out, nil
}
