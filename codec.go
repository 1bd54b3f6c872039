// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

// EncodeMantExp44 packs v into the 4-bit mantissa, 4-bit exponent form used by the TIMEGAIN and
// DRGAIN registers. Low bits are truncated and values beyond 15<<15 saturate.
func EncodeMantExp44(v uint32) uint8 {
	var exp uint8
	for v > 15 && exp < 15 {
		v >>= 1
		exp++
	}
	if v > 15 {
		v = 15
	}
	return uint8(v)<<4 | exp
}

// DecodeMantExp44 is the inverse of EncodeMantExp44.
func DecodeMantExp44(b uint8) uint32 {
	return uint32(b>>4) << (b & 0xF)
}

// EncodeExpMant35 packs v into the 3-bit exponent, 5-bit mantissa form used by the packet
// controller timing registers. Low bits are truncated and values beyond 31<<7 saturate.
func EncodeExpMant35(v uint32) uint8 {
	var exp uint8
	for v > 31 && exp < 7 {
		v >>= 1
		exp++
	}
	if v > 31 {
		v = 31
	}
	return exp<<5 | uint8(v)
}

// DecodeExpMant35 is the inverse of EncodeExpMant35.
func DecodeExpMant35(b uint8) uint32 {
	return uint32(b&0x1F) << (b >> 5)
}
