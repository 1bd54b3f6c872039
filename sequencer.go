// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

// WakeupConfig configures wake-on-radio reception, see RxWOR.
type WakeupConfig struct {
	PeriodMS     uint32 // time between wakeups
	XOEarlyMS    uint32 // start the crystal this long before each wakeup
	DurationBits uint32 // listen this long when no packet arrives, 25 is a good start
	RSSIAbsThr   uint8  // RSSI needed to stay awake, 221 or 3*log2(bandwidth)+x
}

// synthProfile is a loop filter and charge pump setting for the synthesiser.
type synthProfile struct {
	loop uint8
	cpi  uint8
}

var (
	// 100kHz loop filter, 68uA charge pump
	synthRanging = synthProfile{loop: PLLLOOP_FILTER_DIRECT | PLLLOOP_BW_100_KHZ, cpi: 8}
	// 500kHz loop filter, 136uA charge pump
	synthOperation = synthProfile{loop: PLLLOOP_FILTER_DIRECT | PLLLOOP_BW_500_KHZ, cpi: 16}
)

// setRegisters programs everything needed for mod in the order the datasheet asks for. wake
// is nil unless the radio is going into wake-on-radio.
func (r *Radio) setRegisters(mod *Modulation, wake *WakeupConfig) {
	r.setModulationParameters(mod)
	r.setPinConfiguration()
	r.setWakeupTimer(wake)
	r.setRxParameters(mod)
	r.setRxParameterSets(mod)
	r.setTxParameters(mod)
	r.setPLLParameters()
	r.setBasebandParameters()
	r.setPacketParameters(mod)
	r.setPatternMatchParameters(mod)
	r.setPacketControllerParameters(mod, wake)
	r.setLowPowerOsc(wake)
	r.writeReg(REG_DACCONFIG, 0x00)
	r.setPerformanceTuning(mod)
}

// setRegistersTx applies the operating synthesiser profile for transmit.
func (r *Radio) setRegistersTx() {
	r.setSynthesiserParameters(synthOperation, &r.synthA)
	r.writeReg(REG_TUNE_F00, 0x0F)
	r.writeReg(REG_TUNE_F18, 0x06)
}

// setRegistersRx applies the operating synthesiser profile for receive.
func (r *Radio) setRegistersRx() {
	r.setSynthesiserParameters(synthOperation, &r.synthA)
	r.writeReg(REG_TUNE_F00, 0x0F)
	r.writeReg(REG_TUNE_F18, 0x02)
}

// setModulationParameters writes MODULATION, ENCODING, FRAMING and FEC. FEC does not work with
// inverted encoding or without HDLC framing, so mod is corrected rather than rejected.
func (r *Radio) setModulationParameters(mod *Modulation) {
	r.writeReg(REG_MODULATION, mod.Scheme)

	if mod.Encoding&ENC_INV != 0 && mod.FEC {
		r.log("WARNING: inversion is not supported with FEC, not inverting")
		mod.Encoding &^= ENC_INV
	}
	r.writeReg(REG_ENCODING, mod.Encoding)

	if mod.FEC && mod.framingMode() != FRAMING_MODE_HDLC {
		r.log("WARNING: FEC needs HDLC framing, forcing HDLC")
		mod.Framing = mod.Framing&^FRAMING_MODE_MASK | FRAMING_MODE_HDLC
	}
	r.writeReg(REG_FRAMING, mod.Framing)

	if mod.framingMode() == FRAMING_MODE_RAW_SOFT_BITS {
		r.writeReg(REG_TUNE_F72, 0x06)
	} else {
		r.writeReg(REG_TUNE_F72, 0x00)
	}

	if mod.FEC {
		// positive interleaver sync, 1/2 soft rx
		r.writeReg(REG_FEC, FEC_POS|FEC_ENA|1<<1)
		r.writeReg(REG_FECSYNC, 98)
	}
}

func (r *Radio) setPinConfiguration() {
	r.writeReg(REG_PINFUNCSYSCLK, r.pinSysClk)
	r.writeReg(REG_PINFUNCDCLK, r.pinDClk)
	r.writeReg(REG_PINFUNCDATA, r.pinData)
	r.writeReg(REG_PINFUNCANTSEL, r.pinAntSel)
	r.writeReg(REG_PINFUNCPWRAMP, r.pinPwrAmp)
}

// setWakeupTimer assumes the low power oscillator runs at its default 640Hz.
func (r *Radio) setWakeupTimer(wake *WakeupConfig) {
	xoEarly := uint32(1)
	if wake != nil {
		period := uint32(float64(wake.PeriodMS) * 0.64)
		xoEarly = uint32(float64(wake.XOEarlyMS) * 0.64)
		if period == 0 {
			period = 1
		}
		if xoEarly == 0 {
			xoEarly = 1
		}
		r.writeReg16(REG_WAKEUPFREQ, uint16(period))
	}
	r.writeReg(REG_WAKEUPXOEARLY, uint8(xoEarly))
}

func (r *Radio) setRxParameters(mod *Modulation) {
	par := &mod.Params
	r.writeReg16(REG_IFFREQ, uint16(par.IFFreq))
	r.writeReg(REG_DECIMATION, uint8(par.Decimation))
	r.writeReg24(REG_RXDATARATE, par.RxDataRate)
	r.writeReg24(REG_MAXDROFFSET, 0)
	// correct the offset at the first LO
	r.writeReg24(REG_MAXRFOFFSET, MAXRFOFFSET_FREQOFFSCORR_FIRST_LO|par.MaxRFOffset)

	if mod.fskFamily() {
		r.writeReg16(REG_FSKDMAX, uint16(par.FSKD))
		r.writeReg16(REG_FSKDMIN, uint16(^par.FSKD))
	}
	if mod.scheme() == MODULATION_AFSK {
		r.setAFSKRxParameters(mod)
	}
	r.writeReg(REG_AMPLFILTER, par.AmplFilter)
}

func (r *Radio) setAFSKRxParameters(mod *Modulation) {
	fxtal := float32(r.cfg.XtalFreq)
	k := float32(1<<16) * float32(mod.Params.Decimation) * float32(r.cfg.XtalDiv())
	mark := uint16(float64(float32(mod.AFSK.Mark)*k/fxtal) + 0.5)
	space := uint16(float64(float32(mod.AFSK.Space)*k/fxtal) + 0.5)
	r.writeReg16(REG_AFSKMARK, mark)
	r.writeReg16(REG_AFSKSPACE, space)
	r.log("afsk rx mark %d = %#04x, space %d = %#04x", mod.AFSK.Mark, mark, mod.AFSK.Space, space)
	r.writeReg(REG_AFSKCTRL, mod.Params.AFSKShift)
}

// setRxParameterSets selects which set is used in which phase and writes the sets in use.
// RXPARAMSETS holds four 2-bit set numbers: initial, after pattern 1, during, and the last one
// which the chip never reaches on its own.
func (r *Radio) setRxParameterSets(mod *Modulation) {
	sets := &mod.Params.RxParamSets
	if mod.Continuous {
		r.writeReg(REG_RXPARAMSETS, 0xFF) // 3, 3, 3, 3
		r.writeRxParamSet(REG_RX_PARAMETER3, &sets[PhaseContinuous])
		return
	}
	r.writeReg(REG_RXPARAMSETS, 0xF4) // 0, 1, 3, 3
	r.writeRxParamSet(REG_RX_PARAMETER0, &sets[PhaseInitial])
	r.writeRxParamSet(REG_RX_PARAMETER1, &sets[PhaseAfterPattern1])
	r.writeRxParamSet(REG_RX_PARAMETER3, &sets[PhaseDuring])
}

func (r *Radio) writeRxParamSet(ps ParamSet, s *RxParamSet) {
	r.writeReg(ps.reg8(rxAGCGain), (s.AGCDecay&0xF)<<4|s.AGCAttack&0xF)
	// target output 304 of 1023 counts
	r.writeReg(ps.reg8(rxAGCTarget), 0x84)
	r.writeReg(ps.reg8(rxAGCAHyst), 0x00)
	r.writeReg(ps.reg8(rxAGCMinMax), 0x00)
	r.writeReg(ps.reg8(rxTimeGain), EncodeMantExp44(s.TimeGain))
	r.writeReg(ps.reg8(rxDRGain), EncodeMantExp44(s.DRGain))
	r.writeReg(ps.reg8(rxPhaseGain), (s.FilterIdx&0x3)<<6|s.PhaseGain&0xF)
	r.writeReg(ps.reg8(rxFreqGainA), s.BBGainPhaseDet)
	r.writeReg(ps.reg8(rxFreqGainB), s.BBGainFreqDet)
	r.writeReg(ps.reg8(rxFreqGainC), s.RFGainPhaseDet)
	r.writeReg(ps.reg8(rxFreqGainD), s.RFGainFreqDet)
	r.writeReg(ps.reg8(rxAmplitudeGain), s.AmplFlags|s.AmplGain)
	r.writeReg16(ps.reg16(rxFreqDev), s.FreqDev)
	r.writeReg(ps.reg8(rxFourFSK), 0x16)
	r.writeReg(ps.reg8(rxBBOffsRes), 0x00)
}

// txPathBits returns the MODCFGA bits selecting the transmit path.
func txPathBits(p TxPath) uint8 {
	if p == TxPathSingleEnded {
		return MODCFGA_TXSE
	}
	return MODCFGA_TXDIFF
}

func (r *Radio) setTxParameters(mod *Modulation) {
	fxtal := float32(r.cfg.XtalFreq)

	r.writeReg(REG_MODCFGF, mod.Shaping&0x3)
	r.writeReg(REG_MODCFGA, txPathBits(r.cfg.TxPath)|MODCFGA_AMPLSHAPE_RAISED_COSINE)

	var deviation, fskdev uint32
	switch mod.scheme() {
	case MODULATION_FSK, MODULATION_MSK:
		deviation = uint32(float64(mod.Params.M) * 0.5 * float64(mod.Bitrate))
		fskdev = uint32(float64(float32(deviation)*(1<<24)/fxtal) + 0.5)
	case MODULATION_AFSK:
		deviation = uint32(mod.AFSK.Deviation)
		fskdev = uint32(float64(float32(deviation)*(1<<24))*0.858785/float64(fxtal) + 0.5)
		r.setAFSKTxParameters(mod)
	}
	r.writeReg24(REG_FSKDEV, fskdev)
	r.log("fskdev %d = %#06x", deviation, fskdev)

	txrate := uint32(float64(float32(mod.Bitrate)*(1<<24)/fxtal) + 0.5)
	r.writeReg24(REG_TXRATE, txrate)
	r.log("bitrate %d = %#06x", mod.Bitrate, txrate)
	if mod.Bitrate >= r.cfg.XtalFreq/32 {
		r.log("bitrate must be below f_xtal/32 for asynchronous wire mode")
	}

	pwr := txPowerCoefficient(mod.Power, r.cfg.TransmitPowerLimit)
	r.writeReg16(REG_TXPWRCOEFFB, pwr)
	r.log("power %.3f = %#03x", mod.Power, pwr)
}

// txPowerCoefficient converts a power fraction into TXPWRCOEFFB, honouring limit when it is
// positive.
func txPowerCoefficient(power, limit float32) uint16 {
	p := power
	if limit > 0 && limit < p {
		p = limit
	}
	if p < 0 {
		p = 0
	}
	v := float64(p*(1<<12)) + 0.5
	if v > 0xFFF {
		return 0xFFF
	}
	return uint16(v)
}

func (r *Radio) setAFSKTxParameters(mod *Modulation) {
	fxtal := float32(r.cfg.XtalFreq)
	mark := uint16(float64(float32(mod.AFSK.Mark)*(1<<18)/fxtal) + 0.5)
	space := uint16(float64(float32(mod.AFSK.Space)*(1<<18)/fxtal) + 0.5)
	r.writeReg16(REG_AFSKMARK, mark)
	r.writeReg16(REG_AFSKSPACE, space)
	r.log("afsk tx mark %d = %#04x, space %d = %#04x", mod.AFSK.Mark, mark, mod.AFSK.Space, space)
}

func (r *Radio) setPLLParameters() {
	// 1250uA VCO1, 250uA VCO2
	r.writeReg(REG_PLLVCOI, PLLVCOI_ENABLE_MANUAL|25)
	r.writeReg(REG_PLLRNGCLK, PLLRNGCLK_DIV_2048)
	// about 8kHz for a 16MHz clock, must stay below a tenth of the loop filter bandwidth
	r.fPLLRng = r.cfg.XtalFreq >> (8 + PLLRNGCLK_DIV_2048)
	r.log("ranging clock %dHz", r.fPLLRng)
}

// setXtalParameters programs the crystal oscillator. It runs once from Init.
func (r *Radio) setXtalParameters() {
	cfg := &r.cfg
	if cfg.ClockSource == ClockCrystal && cfg.LoadCapacitance != 0 {
		var xtalcap uint8
		switch c := cfg.LoadCapacitance; {
		case c == 3:
			xtalcap = 0
		case c == 8:
			xtalcap = 1
		case c >= 9 && c <= 39:
			xtalcap = uint8(c-8) << 1
		default:
			r.log("xtal load capacitance %dpF not supported", c)
			xtalcap = 0
		}
		r.writeReg(REG_XTALCAP, xtalcap)
	}

	switch {
	case cfg.XtalFreq > 43000000:
		r.writeReg(REG_XTALOSC, 0x0D)
	case cfg.ClockSource == ClockTCXO:
		r.writeReg(REG_XTALOSC, 0x04)
	default:
		r.writeReg(REG_XTALOSC, 0x03)
	}

	if cfg.ClockSource == ClockTCXO {
		r.writeReg(REG_XTALAMPL, 0x00)
	} else {
		r.writeReg(REG_XTALAMPL, 0x07)
	}

	if cfg.XtalDiv() == 1 {
		r.writeReg(REG_TUNE_F35, 0x10)
	} else {
		r.writeReg(REG_TUNE_F35, 0x11)
	}
}

func (r *Radio) setBasebandParameters() {
	r.writeReg(REG_BBTUNE, 0x0F)
	r.writeReg(REG_BBOFFSCAP, 0x77)
}

func (r *Radio) setPacketParameters(mod *Modulation) {
	// address at position 1
	r.writeReg(REG_PKTADDRCFG, (mod.Params.FECSyncDis&1)<<5|0x01)
	if mod.FixedLength != 0 {
		r.writeReg(REG_PKTLENCFG, 0x00)
		r.writeReg(REG_PKTLENOFFSET, mod.FixedLength)
	} else {
		// 8 significant bits in the length byte, no offset
		r.writeReg(REG_PKTLENCFG, 0x80)
		r.writeReg(REG_PKTLENOFFSET, 0x00)
	}
	r.writeReg(REG_PKTMAXLEN, 0xFF)
}

func (r *Radio) setPatternMatchParameters(mod *Modulation) {
	par := &mod.Params
	if mod.framingMode() == FRAMING_MODE_HDLC {
		// raw received bits, 11-bit flag pattern
		r.writeReg16(REG_MATCH1PAT, 0x7E7E)
		r.writeReg(REG_MATCH1LEN, 0x8A)
		r.writeReg(REG_MATCH1MAX, par.Match1Threshold)
		return
	}
	// preamble
	r.writeReg16(REG_MATCH1PAT, 0x5555)
	r.writeReg(REG_MATCH1LEN, 0x8A)
	r.writeReg(REG_MATCH1MAX, par.Match1Threshold)
	// sync word, 32 decoded bits
	r.writeReg32(REG_MATCH0PAT, 0x55335533)
	r.writeReg(REG_MATCH0LEN, 0x1F)
	r.writeReg(REG_MATCH0MAX, par.Match0Threshold)
}

func (r *Radio) setPacketControllerParameters(mod *Modulation, wake *WakeupConfig) {
	par := &mod.Params
	r.writeReg(REG_TMGTXBOOST, EncodeExpMant35(uint32(par.TxPLLBoostTime)))
	r.writeReg(REG_TMGTXSETTLE, EncodeExpMant35(uint32(par.TxPLLSettleTime)))
	r.writeReg(REG_TMGRXBOOST, EncodeExpMant35(uint32(par.RxPLLBoostTime)))
	r.writeReg(REG_TMGRXSETTLE, EncodeExpMant35(uint32(par.RxPLLSettleTime)))
	r.writeReg(REG_TMGRXOFFSACQ, 0x00)
	r.writeReg(REG_TMGRXCOARSEAGC, EncodeExpMant35(uint32(par.RxCoarseAGC)))
	r.writeReg(REG_TMGRXAGC, EncodeExpMant35(uint32(par.RxAGCSettling)))
	r.writeReg(REG_TMGRXRSSI, EncodeExpMant35(uint32(par.RxRSSISettling)))
	if wake != nil {
		r.writeReg(REG_TMGRXPREAMBLE1, EncodeExpMant35(wake.DurationBits))
	}
	r.writeReg(REG_TMGRXPREAMBLE2, EncodeExpMant35(uint32(par.Preamble2Timeout)))
	if wake != nil {
		r.writeReg(REG_RSSIABSTHR, wake.RSSIAbsThr)
	}
	// never report a busy channel
	r.writeReg(REG_BGNDRSSITHR, 0x00)
	r.writeReg(REG_PKTCHUNKSIZE, PKT_MAXIMUM_CHUNK_SIZE_240_BYTES)
	r.writeReg(REG_PKTMISCFLAGS, par.PktMiscFlags)
	r.writeReg(REG_PKTSTOREFLAGS, r.cfg.PktStoreFlags)
	r.writeReg(REG_PKTACCEPTFLAGS,
		PKT_ACCEPT_MULTIPLE_CHUNKS|PKT_ACCEPT_ADDRESS_FAILURES|PKT_ACCEPT_RESIDUE|r.cfg.PktAcceptFlags)
}

// setLowPowerOsc calibrates the 640Hz oscillator against the crystal. It is only needed for
// wakeups.
func (r *Radio) setLowPowerOsc(wake *WakeupConfig) {
	if wake == nil {
		return
	}
	refdiv := uint32(float64(float32(r.cfg.XtalFreq)) / 640.0)
	if refdiv > 0xFFFF {
		// crystals above about 41MHz
		refdiv = 0xFFFF
	}
	r.writeReg16(REG_LPOSCREF, uint16(refdiv))
	r.writeReg(REG_LPOSCCONFIG, LPOSC_ENABLE|LPOSC_640_HZ|LPOSC_CALIBF)
}

func (r *Radio) setPerformanceTuning(mod *Modulation) {
	r.writeReg(REG_REF, 0x03)
	r.writeReg(REG_TUNE_F1C, 0x07)
	if mod.Params.PerfTuning == 1 {
		r.writeReg(REG_TUNE_F21, 0x68)
		r.writeReg(REG_TUNE_F22, 0xFF)
		r.writeReg(REG_TUNE_F23, 0x84)
		r.writeReg(REG_TUNE_F26, 0x98)
	} else {
		r.writeReg(REG_TUNE_F21, 0x5C)
		r.writeReg(REG_TUNE_F22, 0x53)
		r.writeReg(REG_TUNE_F23, 0x76)
		r.writeReg(REG_TUNE_F26, 0x92)
	}
	r.writeReg(REG_TUNE_F44, 0x25)
}

// setSynthesiserParameters writes the loop filter, charge pump and VCO divider for s.
func (r *Radio) setSynthesiserParameters(p synthProfile, s *Synthesiser) {
	var vco uint8
	if s.RFDiv == RFDivTwo {
		vco = PLLVCODIV_RF_DIV_TWO
	}
	switch r.cfg.VCOType {
	case VCOInternalExternalInductor:
		vco |= PLLVCODIV_INTERNAL_VCO_EXT_INDUCTOR
	case VCOExternal:
		vco |= PLLVCODIV_EXTERNAL_VCO
	default:
		vco |= PLLVCODIV_INTERNAL_VCO
	}
	r.writeReg(REG_PLLLOOP, p.loop)
	r.writeReg(REG_PLLCPI, p.cpi)
	r.writeReg(REG_PLLVCODIV, vco)
	if vco&PLLVCODIV_RF_DIV_TWO != 0 {
		r.writeReg(REG_TUNE_F34, 0x28)
	} else {
		r.writeReg(REG_TUNE_F34, 0x08)
	}
}
