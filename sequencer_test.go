// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"testing"
)

func derivedFor(t *testing.T, r *Radio, mod Modulation) *Modulation {
	t.Helper()
	if err := r.DefaultParams(&mod); err != nil {
		t.Fatal(err)
	}
	return &mod
}

func TestSetRegistersGFSK(t *testing.T) {
	r, b := newTestRadio(t)
	mod := derivedFor(t, r, GFSKHDLC())
	r.setRegisters(mod, nil)
	if err := r.takeErr(); err != nil {
		t.Fatal(err)
	}

	want8 := []struct {
		reg Reg8
		v   uint8
	}{
		{REG_MODULATION, MODULATION_FSK},
		{REG_ENCODING, ENC_NRZI},
		{REG_FRAMING, FRAMING_MODE_HDLC | FRAMING_CRCMODE_CCITT},
		{REG_TUNE_F72, 0x00},
		{REG_PINFUNCSYSCLK, 1},
		{REG_PINFUNCPWRAMP, 7},
		{REG_WAKEUPXOEARLY, 1},
		{REG_DECIMATION, 68},
		{REG_RXPARAMSETS, 0xF4},
		{REG_MODCFGF, MODCFGF_GAUSSIAN_BT_0_5},
		{REG_MODCFGA, MODCFGA_TXDIFF | MODCFGA_AMPLSHAPE_RAISED_COSINE},
		{REG_PLLVCOI, 0x80 | 25},
		{REG_PLLRNGCLK, 3},
		{REG_BBTUNE, 0x0F},
		{REG_BBOFFSCAP, 0x77},
		{REG_PKTADDRCFG, 0x01},
		{REG_PKTLENCFG, 0x80},
		{REG_PKTLENOFFSET, 0x00},
		{REG_PKTMAXLEN, 0xFF},
		{REG_MATCH1LEN, 0x8A},
		{REG_MATCH1MAX, 10},
		{REG_TMGTXBOOST, 0x33},
		{REG_TMGTXSETTLE, 0x14},
		{REG_TMGRXBOOST, 0x33},
		{REG_TMGRXSETTLE, 0x14},
		{REG_TMGRXCOARSEAGC, 0x73},
		{REG_TMGRXRSSI, 0x03},
		{REG_TMGRXPREAMBLE2, 0x17},
		{REG_PKTCHUNKSIZE, 0x0C},
		{REG_PKTACCEPTFLAGS, 0x29},
		{REG_REF, 0x03},
		{REG_TUNE_F1C, 0x07},
		{REG_TUNE_F21, 0x5C},
		{REG_TUNE_F22, 0x53},
		{REG_TUNE_F23, 0x76},
		{REG_TUNE_F26, 0x92},
		{REG_TUNE_F44, 0x25},
	}
	for _, w := range want8 {
		if got := b.reg8(w.reg); got != w.v {
			t.Errorf("register %#03x = %#02x, want %#02x", uint16(w.reg), got, w.v)
		}
	}

	if got := b.reg16(REG_IFFREQ); got != 204 {
		t.Errorf("IFFREQ = %d, want 204", got)
	}
	if got := b.reg24(REG_RXDATARATE); got != 15406 {
		t.Errorf("RXDATARATE = %d, want 15406", got)
	}
	if got := b.reg24(REG_MAXRFOFFSET); got != 1<<23|1025 {
		t.Errorf("MAXRFOFFSET = %#06x, want %#06x", got, 1<<23|1025)
	}
	if got := b.reg16(REG_FSKDMAX); got != 172 {
		t.Errorf("FSKDMAX = %d, want 172", got)
	}
	if got := b.reg16(REG_FSKDMIN); got != 0xFF53 {
		t.Errorf("FSKDMIN = %#04x, want 0xff53", got)
	}
	if got := b.reg24(REG_FSKDEV); got != 683 {
		t.Errorf("FSKDEV = %d, want 683", got)
	}
	if got := b.reg24(REG_TXRATE); got != 2050 {
		t.Errorf("TXRATE = %d, want 2050", got)
	}
	if got := b.reg16(REG_TXPWRCOEFFB); got != 410 {
		t.Errorf("TXPWRCOEFFB = %d, want 410", got)
	}
	if got := b.reg16(REG_MATCH1PAT); got != 0x7E7E {
		t.Errorf("MATCH1PAT = %#04x, want 0x7e7e", got)
	}

	// HDLC uses only pattern 1, and nothing is written for wake-on-radio
	for _, addr := range []uint16{uint16(REG_MATCH0PAT), uint16(REG_FEC), uint16(REG_LPOSCCONFIG),
		uint16(REG_WAKEUPFREQ), uint16(REG_TMGRXPREAMBLE1), uint16(REG_RSSIABSTHR)} {
		if w := b.writesTo(addr); len(w) != 0 {
			t.Errorf("register %#03x written: % x", addr, w)
		}
	}
}

func TestSetRegistersParamSets(t *testing.T) {
	r, b := newTestRadio(t)
	mod := derivedFor(t, r, GFSKHDLC())
	r.setRegisters(mod, nil)

	p0 := REG_RX_PARAMETER0
	if got := b.reg8(p0.reg8(rxAGCGain)); got != 13<<4|6 {
		t.Errorf("AGCGAIN0 = %#02x, want 0xd6", got)
	}
	if got := b.reg8(p0.reg8(rxAGCTarget)); got != 0x84 {
		t.Errorf("AGCTARGET0 = %#02x, want 0x84", got)
	}
	if got := b.reg8(p0.reg8(rxTimeGain)); got != 0xF8 {
		t.Errorf("TIMEGAIN0 = %#02x, want 0xf8", got)
	}
	if got := b.reg8(p0.reg8(rxDRGain)); got != 0xF2 {
		t.Errorf("DRGAIN0 = %#02x, want 0xf2", got)
	}
	if got := b.reg8(p0.reg8(rxPhaseGain)); got != 0xC3 {
		t.Errorf("PHASEGAIN0 = %#02x, want 0xc3", got)
	}
	if got := b.reg8(p0.reg8(rxFreqGainD)); got != 11 {
		t.Errorf("FREQGAIND0 = %d, want 11", got)
	}
	if got := b.reg8(p0.reg8(rxAmplitudeGain)); got != 6 {
		t.Errorf("AMPLITUDEGAIN0 = %d, want 6", got)
	}
	if got := b.reg8(p0.reg8(rxFourFSK)); got != 0x16 {
		t.Errorf("FOURFSK0 = %#02x, want 0x16", got)
	}

	p1 := REG_RX_PARAMETER1
	if got := b.reg8(p1.reg8(rxTimeGain)); got != 0xF6 {
		t.Errorf("TIMEGAIN1 = %#02x, want 0xf6", got)
	}
	if got := b.reg16(p1.reg16(rxFreqDev)); got != 68 {
		t.Errorf("FREQDEV1 = %d, want 68", got)
	}

	p3 := REG_RX_PARAMETER3
	if got := b.reg8(p3.reg8(rxAGCGain)); got != 0xFF {
		t.Errorf("AGCGAIN3 = %#02x, want 0xff", got)
	}
	if got := b.reg8(p3.reg8(rxTimeGain)); got != 0xF5 {
		t.Errorf("TIMEGAIN3 = %#02x, want 0xf5", got)
	}
	if got := b.reg8(p3.reg8(rxFreqGainC)); got != 13 {
		t.Errorf("FREQGAINC3 = %d, want 13", got)
	}

	if w := b.writesTo(uint16(REG_RX_PARAMETER2.reg8(rxAGCGain))); len(w) != 0 {
		t.Error("parameter set 2 written outside continuous mode")
	}
}

func TestSetRegistersContinuous(t *testing.T) {
	r, b := newTestRadio(t)
	mod := derivedFor(t, r, GMSKHDLCFEC())
	r.setRegisters(mod, nil)

	if got := b.reg8(REG_RXPARAMSETS); got != 0xFF {
		t.Errorf("RXPARAMSETS = %#02x, want 0xff", got)
	}
	if w := b.writesTo(uint16(REG_RX_PARAMETER0.reg8(rxAGCGain))); len(w) != 0 {
		t.Error("parameter set 0 written in continuous mode")
	}
	if got := b.reg8(REG_RX_PARAMETER3.reg8(rxAGCGain)); got != 11<<4|4 {
		t.Errorf("AGCGAIN3 = %#02x, want 0xb4", got)
	}
	if got := b.reg8(REG_FEC); got != FEC_POS|FEC_ENA|1<<1 {
		t.Errorf("FEC = %#02x, want 0x13", got)
	}
	if got := b.reg8(REG_FECSYNC); got != 98 {
		t.Errorf("FECSYNC = %d, want 98", got)
	}
	if got := b.reg24(REG_FSKDEV); got != 5125 {
		t.Errorf("FSKDEV = %d, want 5125", got)
	}
	if got := b.reg24(REG_TXRATE); got != 20499 {
		t.Errorf("TXRATE = %d, want 20499", got)
	}
}

func TestSetRegistersFECCorrections(t *testing.T) {
	r, b := newTestRadio(t)
	mod := GMSK()
	mod.FEC = true // NRZI and pattern match framing, both unusable with FEC
	m := derivedFor(t, r, mod)
	r.setRegisters(m, nil)

	if got := b.reg8(REG_ENCODING); got != ENC_DIFF {
		t.Errorf("ENCODING = %#02x, want %#02x", got, ENC_DIFF)
	}
	if m.Encoding&ENC_INV != 0 {
		t.Error("inversion left in the modulation")
	}
	if got := b.reg8(REG_FRAMING); got != FRAMING_MODE_HDLC|FRAMING_CRCMODE_CCITT {
		t.Errorf("FRAMING = %#02x, want HDLC with CCITT", got)
	}
	if got := b.reg16(REG_MATCH1PAT); got != 0x7E7E {
		t.Errorf("MATCH1PAT = %#04x after forcing HDLC, want 0x7e7e", got)
	}
}

func TestSetRegistersPatternMatch(t *testing.T) {
	r, b := newTestRadio(t)
	mod := derivedFor(t, r, GMSK())
	r.setRegisters(mod, nil)

	if got := b.reg16(REG_MATCH1PAT); got != 0x5555 {
		t.Errorf("MATCH1PAT = %#04x, want 0x5555", got)
	}
	if got := b.reg32(REG_MATCH0PAT); got != 0x55335533 {
		t.Errorf("MATCH0PAT = %#08x, want 0x55335533", got)
	}
	if got := b.reg8(REG_MATCH0LEN); got != 0x1F {
		t.Errorf("MATCH0LEN = %#02x, want 0x1f", got)
	}
	if got := b.reg8(REG_MATCH0MAX); got != 28 {
		t.Errorf("MATCH0MAX = %d, want 28", got)
	}
}

func TestSetRegistersFixedLength(t *testing.T) {
	r, b := newTestRadio(t)
	mod := GFSKHDLC()
	mod.FixedLength = 32
	r.setRegisters(derivedFor(t, r, mod), nil)
	if got := b.reg8(REG_PKTLENCFG); got != 0 {
		t.Errorf("PKTLENCFG = %#02x, want 0", got)
	}
	if got := b.reg8(REG_PKTLENOFFSET); got != 32 {
		t.Errorf("PKTLENOFFSET = %d, want 32", got)
	}
}

func TestSetRegistersAFSK(t *testing.T) {
	r, b := newTestRadio(t)
	mod := derivedFor(t, r, APRS())
	r.setRegisters(mod, nil)

	// the receiver tones are written first, then replaced by the transmitter's
	marks := b.writesTo(uint16(REG_AFSKMARK))
	if len(marks) != 2 || marks[0][0] != 0x01 || marks[0][1] != 0x47 || marks[1][1] != 19 {
		t.Errorf("AFSKMARK writes % x, want 327 then 19", marks)
	}
	if got := b.reg16(REG_AFSKSPACE); got != 35 {
		t.Errorf("AFSKSPACE = %d, want 35", got)
	}
	if got := b.reg8(REG_AFSKCTRL); got != 5 {
		t.Errorf("AFSKCTRL = %d, want 5", got)
	}
	if got := b.reg24(REG_FSKDEV); got != 2641 {
		t.Errorf("FSKDEV = %d, want 2641", got)
	}
}

func TestSetRegistersWakeup(t *testing.T) {
	r, b := newTestRadio(t)
	mod := derivedFor(t, r, GFSKHDLC())
	wake := &WakeupConfig{PeriodMS: 100, XOEarlyMS: 5, DurationBits: 25, RSSIAbsThr: 221}
	r.setRegisters(mod, wake)

	if got := b.reg16(REG_WAKEUPFREQ); got != 64 {
		t.Errorf("WAKEUPFREQ = %d, want 64", got)
	}
	if got := b.reg8(REG_WAKEUPXOEARLY); got != 3 {
		t.Errorf("WAKEUPXOEARLY = %d, want 3", got)
	}
	if got := b.reg8(REG_TMGRXPREAMBLE1); got != 25 {
		t.Errorf("TMGRXPREAMBLE1 = %#02x, want 25", got)
	}
	if got := b.reg8(REG_RSSIABSTHR); got != 221 {
		t.Errorf("RSSIABSTHR = %d, want 221", got)
	}
	if got := b.reg16(REG_LPOSCREF); got != 25576 {
		t.Errorf("LPOSCREF = %d, want 25576", got)
	}
	if got := b.reg8(REG_LPOSCCONFIG); got != LPOSC_ENABLE|LPOSC_CALIBF {
		t.Errorf("LPOSCCONFIG = %#02x, want 0x11", got)
	}
}

func TestTxPowerCoefficient(t *testing.T) {
	tests := []struct {
		power, limit float32
		want         uint16
	}{
		{0.1, 0, 410},
		{0.5, 0.25, 1024},
		{0.2, 0.5, 819},
		{1, 0, 0xFFF},
		{2, 0, 0xFFF},
		{-1, 0, 0},
	}
	for _, tt := range tests {
		if got := txPowerCoefficient(tt.power, tt.limit); got != tt.want {
			t.Errorf("txPowerCoefficient(%v, %v) = %d, want %d", tt.power, tt.limit, got, tt.want)
		}
	}
}

func TestSetXtalParameters(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		cap, osc, amp uint8
		f35           uint8
		capWritten    bool
	}{
		{"tcxo", Config{XtalFreq: 16369000, ClockSource: ClockTCXO}, 0, 0x04, 0x00, 0x10, false},
		{"crystal 12pF", Config{XtalFreq: 16000000, LoadCapacitance: 12}, 8, 0x03, 0x07, 0x10, true},
		{"crystal 3pF", Config{XtalFreq: 16000000, LoadCapacitance: 3}, 0, 0x03, 0x07, 0x10, true},
		{"crystal 8pF", Config{XtalFreq: 16000000, LoadCapacitance: 8}, 1, 0x03, 0x07, 0x10, true},
		{"crystal 48MHz", Config{XtalFreq: 48000000}, 0, 0x0D, 0x07, 0x11, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBus()
			r := newRadio(b, tt.cfg)
			r.setXtalParameters()
			if err := r.takeErr(); err != nil {
				t.Fatal(err)
			}
			if w := b.writesTo(uint16(REG_XTALCAP)); (len(w) != 0) != tt.capWritten {
				t.Errorf("XTALCAP writes % x", w)
			}
			if got := b.reg8(REG_XTALCAP); got != tt.cap {
				t.Errorf("XTALCAP = %#02x, want %#02x", got, tt.cap)
			}
			if got := b.reg8(REG_XTALOSC); got != tt.osc {
				t.Errorf("XTALOSC = %#02x, want %#02x", got, tt.osc)
			}
			if got := b.reg8(REG_XTALAMPL); got != tt.amp {
				t.Errorf("XTALAMPL = %#02x, want %#02x", got, tt.amp)
			}
			if got := b.reg8(REG_TUNE_F35); got != tt.f35 {
				t.Errorf("0xF35 = %#02x, want %#02x", got, tt.f35)
			}
		})
	}
}

func TestSynthesiserParameters(t *testing.T) {
	r, b := newTestRadio(t)
	s := Synthesiser{RFDiv: RFDivTwo}
	r.setSynthesiserParameters(synthRanging, &s)
	if got := b.reg8(REG_PLLLOOP); got != 0x09 {
		t.Errorf("PLLLOOP = %#02x, want 0x09", got)
	}
	if got := b.reg8(REG_PLLCPI); got != 8 {
		t.Errorf("PLLCPI = %d, want 8", got)
	}
	if got := b.reg8(REG_PLLVCODIV); got != PLLVCODIV_RF_DIV_TWO {
		t.Errorf("PLLVCODIV = %#02x, want 0x04", got)
	}
	if got := b.reg8(REG_TUNE_F34); got != 0x28 {
		t.Errorf("0xF34 = %#02x, want 0x28", got)
	}

	r.cfg.VCOType = VCOExternal
	s.RFDiv = RFDivNone
	r.setSynthesiserParameters(synthOperation, &s)
	if got := b.reg8(REG_PLLLOOP); got != 0x0B {
		t.Errorf("PLLLOOP = %#02x, want 0x0b", got)
	}
	if got := b.reg8(REG_PLLCPI); got != 16 {
		t.Errorf("PLLCPI = %d, want 16", got)
	}
	if got := b.reg8(REG_PLLVCODIV); got != PLLVCODIV_EXTERNAL_VCO {
		t.Errorf("PLLVCODIV = %#02x, want 0x10", got)
	}
	if got := b.reg8(REG_TUNE_F34); got != 0x08 {
		t.Errorf("0xF34 = %#02x, want 0x08", got)
	}
}

func TestSetRegistersRxTx(t *testing.T) {
	r, b := newTestRadio(t)
	r.setRegistersTx()
	if got := b.reg8(REG_TUNE_F18); got != 0x06 {
		t.Errorf("TX 0xF18 = %#02x, want 0x06", got)
	}
	if got := b.reg8(REG_TUNE_F00); got != 0x0F {
		t.Errorf("0xF00 = %#02x, want 0x0f", got)
	}
	r.setRegistersRx()
	if got := b.reg8(REG_TUNE_F18); got != 0x02 {
		t.Errorf("RX 0xF18 = %#02x, want 0x02", got)
	}
}
