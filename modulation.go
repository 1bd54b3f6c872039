// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

// Modulation describes how the radio modulates and frames data. The caller fills in the
// scheme, framing and rates, then DefaultParams derives everything else into Params.
type Modulation struct {
	Scheme      uint8   // MODULATION_*
	Encoding    uint8   // ENC_* flags
	Framing     uint8   // FRAMING_MODE_* | FRAMING_CRCMODE_*
	Shaping     uint8   // MODCFGF_*
	Bitrate     uint32  // symbol rate in bits per second
	FEC         bool    // enable the 1/2 rate convolutional code, needs HDLC framing
	Power       float32 // TX output power as a fraction of maximum, 0..1
	Continuous  bool    // continuous transmission instead of occasional packets
	FixedLength uint8   // fixed packet length in bytes, 0 for variable length

	FSK  FSKParams  // used when Scheme is FSK
	AFSK AFSKParams // used when Scheme is AFSK

	// MaxDeltaCarrier is the largest expected carrier offset in Hz. A larger value makes
	// the AFC take longer to lock. DefaultParams sets it from Config.ErrorPPM at FreqA when
	// zero, and never below 1kHz.
	MaxDeltaCarrier uint32

	Params Params // derived by DefaultParams
}

// FSKParams holds the FSK specific settings.
type FSKParams struct {
	ModulationIndex float32
}

// AFSKParams holds the AFSK tone frequencies and deviation in Hz.
type AFSKParams struct {
	Deviation uint16
	Space     uint16
	Mark      uint16
}

func (m *Modulation) scheme() uint8 { return m.Scheme & 0xF }

func (m *Modulation) framingMode() uint8 { return m.Framing & FRAMING_MODE_MASK }

// fskFamily is true for the schemes demodulated by the FSK demodulator.
func (m *Modulation) fskFamily() bool {
	switch m.scheme() {
	case MODULATION_FSK, MODULATION_MSK, MODULATION_AFSK:
		return true
	}
	return false
}

// Modes is the table of ready made modulations, keyed by a short name. The map values are
// constructors so that every user gets its own copy to derive parameters into.
var Modes = map[string]func() Modulation{
	"gfsk":     GFSKHDLC,
	"gmsk":     GMSK,
	"gmsk-fec": GMSKHDLCFEC,
	"fsk-fec":  FSKHDLCFEC,
	"afsk":     APRS,
}

// GFSKHDLC is 2kbps GFSK with m=2/3 and HDLC framing.
func GFSKHDLC() Modulation {
	return Modulation{
		Scheme:   MODULATION_FSK,
		Encoding: ENC_NRZI,
		Framing:  FRAMING_MODE_HDLC | FRAMING_CRCMODE_CCITT,
		Shaping:  MODCFGF_GAUSSIAN_BT_0_5,
		Bitrate:  2000,
		Power:    0.1,
		FSK:      FSKParams{ModulationIndex: 2.0 / 3},
	}
}

// GMSK is 2kbps GMSK with raw pattern match framing.
func GMSK() Modulation {
	return Modulation{
		Scheme:   MODULATION_MSK,
		Encoding: ENC_NRZI,
		Framing:  FRAMING_MODE_PATTERN_MATCH | FRAMING_CRCMODE_CCITT,
		Shaping:  MODCFGF_GAUSSIAN_BT_0_5,
		Bitrate:  2000,
		Power:    0.1,
	}
}

// GMSKHDLCFEC is 20kbps scrambled GMSK with HDLC framing and FEC, continuous.
func GMSKHDLCFEC() Modulation {
	return Modulation{
		Scheme:     MODULATION_MSK,
		Encoding:   ENC_NRZ | ENC_SCRAM,
		Framing:    FRAMING_MODE_HDLC | FRAMING_CRCMODE_CCITT,
		Shaping:    MODCFGF_GAUSSIAN_BT_0_5,
		Bitrate:    20000,
		FEC:        true,
		Power:      0.1,
		Continuous: true,
	}
}

// FSKHDLCFEC is 1200bps scrambled FSK, m=2/3, with HDLC framing and FEC, continuous.
func FSKHDLCFEC() Modulation {
	return Modulation{
		Scheme:     MODULATION_FSK,
		Encoding:   ENC_NRZ | ENC_SCRAM,
		Framing:    FRAMING_MODE_HDLC | FRAMING_CRCMODE_CCITT,
		Bitrate:    1200,
		FEC:        true,
		Power:      0.1,
		Continuous: true,
		FSK:        FSKParams{ModulationIndex: 2.0 / 3},
	}
}

// APRS is 1200 baud Bell 202 AFSK as used by APRS.
func APRS() Modulation {
	return Modulation{
		Scheme:   MODULATION_AFSK,
		Encoding: ENC_NRZI,
		Framing:  FRAMING_MODE_HDLC | FRAMING_CRCMODE_CCITT,
		Bitrate:  1200,
		Power:    0.1,
		AFSK:     AFSKParams{Deviation: 3000, Space: 2200, Mark: 1200},
	}
}
