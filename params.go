// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"errors"
	"math"
)

// ErrInvalidParams is returned by DeriveParams when the bitrate or crystal frequency is zero.
var ErrInvalidParams = errors.New("ax5043: bitrate and crystal frequency must be non-zero")

// Phase identifies the receiver parameter set used during one part of a packet. The chip
// moves between sets on its own as the preamble and sync patterns are matched.
type Phase int

const (
	PhaseInitial       Phase = iota // settling onto a new signal
	PhaseAfterPattern1              // after the preamble matched
	PhaseDuring                     // inside the packet
	PhaseContinuous                 // continuous reception
)

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseAfterPattern1:
		return "after-pattern1"
	case PhaseDuring:
		return "during"
	case PhaseContinuous:
		return "continuous"
	}
	return "phase?"
}

// RxParamSet is one of the four receiver gain profiles. Gains are kept as raw magnitudes and
// encoded when they are written.
type RxParamSet struct {
	AGCAttack       uint8
	AGCDecay        uint8
	TimeGain        uint32
	TimeGainLimited bool // time gain was reduced to stay below the data rate
	DRGain          uint32
	PhaseGain       uint8
	FilterIdx       uint8
	BBGainPhaseDet  uint8 // baseband frequency recovery, phase detector
	BBGainFreqDet   uint8 // baseband frequency recovery, frequency detector
	RFGainPhaseDet  uint8 // RF frequency recovery, phase detector
	RFGainFreqDet   uint8 // RF frequency recovery, frequency detector
	AmplGain        uint8
	AmplFlags       uint8
	FreqDev         uint16
}

// Params holds every value derived from the crystal and the modulation. It is filled in by
// DeriveParams and only read afterwards.
type Params struct {
	IsSet bool
	M     float32 // modulation index

	// forward error correction
	FECInpShift uint8
	ShortMem    uint8

	// receiver
	RxBandwidth      uint32 // Hz
	BandwidthGuessed bool   // no bandwidth rule for this scheme, 4x bitrate used
	FBaseband        uint32 // Hz
	IFFrequency      uint32 // Hz
	IFFreq           uint32 // IFFREQ register value
	Decimation       uint32
	DecimationCapped bool // decimation computed above 127 and was clamped
	RxDataRate       uint32
	MaxRFOffset      uint32
	FSKD             uint32
	AmplFilter       uint8
	AFSKShift        uint8

	// receiver parameter sets, indexed by Phase
	RxParamSets [4]RxParamSet

	// packet format and pattern match
	FECSyncDis      uint8
	Match1Threshold uint8
	Match0Threshold uint8

	// packet controller
	PktMiscFlags     uint8
	TxPLLBoostTime   uint16 // us
	TxPLLSettleTime  uint16 // us
	RxPLLBoostTime   uint16 // us
	RxPLLSettleTime  uint16 // us
	RxCoarseAGC      uint16 // us
	RxAGCSettling    uint16
	RxRSSISettling   uint16
	Preamble1Timeout uint16
	Preamble2Timeout uint16
	RSSIAbsThr       uint8

	PerfTuning uint8 // 0 datasheet values, 1 alternative values for registers 0xF21..0xF26
}

// DeriveParams computes mod.Params from the crystal in cfg and the rest of mod. It does not
// access the radio.
func DeriveParams(cfg *Config, mod *Modulation) error {
	if mod.Bitrate == 0 || cfg.XtalFreq == 0 {
		return ErrInvalidParams
	}
	par := &mod.Params
	*par = Params{}

	switch mod.scheme() {
	case MODULATION_FSK:
		par.M = mod.FSK.ModulationIndex
	case MODULATION_MSK:
		par.M = 0.5
	case MODULATION_AFSK:
		par.M = 2 * float32(mod.AFSK.Deviation) / float32(mod.Bitrate)
	}

	par.FECInpShift = 1
	par.ShortMem = 0

	deriveReceiver(cfg, mod, par)
	deriveAFSKShift(cfg, mod, par)

	for ph := PhaseInitial; ph <= PhaseContinuous; ph++ {
		par.RxParamSets[ph] = RxParameterSet(cfg, mod, ph)
	}

	par.FECSyncDis = 0
	par.Match1Threshold = 10
	par.Match0Threshold = 28

	par.PktMiscFlags = PKT_FLAGS_RSSI_UNITS_MICROSECONDS
	par.TxPLLBoostTime = 38
	par.TxPLLSettleTime = 20
	par.RxPLLBoostTime = 38
	par.RxPLLSettleTime = 20
	par.RxCoarseAGC = 152
	par.RxAGCSettling = 0
	par.RxRSSISettling = 3
	par.Preamble1Timeout = 0
	par.Preamble2Timeout = 23
	par.RSSIAbsThr = 221

	par.PerfTuning = 0
	par.IsSet = true
	return nil
}

func deriveReceiver(cfg *Config, mod *Modulation, par *Params) {
	fxtal := cfg.XtalFreq
	xtalDiv := cfg.XtalDiv()
	br := mod.Bitrate

	switch mod.scheme() {
	case MODULATION_ASK, MODULATION_ASK_COHERENT, MODULATION_PSK:
		par.RxBandwidth = br
	case MODULATION_FSK, MODULATION_MSK:
		par.RxBandwidth = uint32(float64(br) * (5.0/6 + float64(par.M)))
	case MODULATION_AFSK:
		// best guess, not verified against the datasheet
		par.RxBandwidth = uint32(mod.AFSK.Deviation)
	default:
		par.RxBandwidth = 4 * br
		par.BandwidthGuessed = true
	}

	par.FBaseband = 5 * par.RxBandwidth

	switch mod.scheme() {
	case MODULATION_ASK, MODULATION_ASK_COHERENT, MODULATION_PSK:
		par.IFFrequency = (5 * par.RxBandwidth) / 6
		if par.IFFrequency < 9380 {
			par.IFFrequency = 9380
		}
	case MODULATION_FSK, MODULATION_MSK, MODULATION_AFSK:
		par.IFFrequency = (5 * par.RxBandwidth) / 6
		if par.IFFrequency < 3180 {
			par.IFFrequency = 3180
		}
	default:
		par.IFFrequency = par.RxBandwidth
	}

	par.IFFreq = uint32(float64(float32(par.IFFrequency)*float32(xtalDiv)*(1<<20)/float32(fxtal)) + 0.5)

	dec := float64(float32(fxtal))/(16.0*float64(xtalDiv)*float64(par.FBaseband)) + 0.5
	switch {
	case dec >= 128:
		par.Decimation = 127
		par.DecimationCapped = true
	case dec < 1:
		par.Decimation = 1
	default:
		par.Decimation = uint32(dec)
	}

	par.RxDataRate = uint32(float64(float32(fxtal)*128/(float32(xtalDiv)*float32(br)*float32(par.Decimation))) + 0.5)

	if mod.MaxDeltaCarrier == 0 {
		// reference error at the carrier, at least 1kHz
		mod.MaxDeltaCarrier = uint32(uint64(cfg.FreqA) * uint64(cfg.ErrorPPM) / 1000000)
		if mod.MaxDeltaCarrier < 1000 {
			mod.MaxDeltaCarrier = 1000
		}
	}
	par.MaxRFOffset = uint32(float64(float32(mod.MaxDeltaCarrier)*(1<<24)/float32(fxtal)) + 0.5)

	if mod.fskFamily() {
		par.FSKD = uint32(260 * par.M) // 260 leaves a little room
		par.FSKD &^= 1
	} else {
		par.FSKD = 0x80
	}

	par.AmplFilter = 0
}

// deriveAFSKShift sets the AFSK detector bandwidth.
func deriveAFSKShift(cfg *Config, mod *Modulation, par *Params) {
	bw := float32(cfg.XtalFreq) / float32(32*mod.Bitrate*uint32(cfg.XtalDiv())*par.Decimation)
	shift := 2 * math.Log2(float64(bw))
	if shift < 0 {
		shift = 0
	}
	par.AFSKShift = uint8(shift)
}

// agcGain returns the AGC attack or decay code for a -3dB corner at f3dB.
func agcGain(fxtal uint32, xtalDiv uint8, f3dB uint32) uint8 {
	const pi float32 = 3.1415927
	ratio := float32(64.0 * float64(pi) * float64(xtalDiv) * float64(f3dB) / float64(float32(fxtal)))
	if ratio >= 1 {
		return 0
	}
	return uint8(-math.Log2(1 - math.Sqrt(1-float64(ratio))))
}

// rfRecoveryGain returns the FREQGAINC/D code for a loop corner at freq.
func rfRecoveryGain(fxtal uint32, xtalDiv uint8, freq uint32) uint8 {
	ratio := float32(fxtal) / float32(uint32(xtalDiv)*4*freq)
	g := math.Log2(float64(ratio)) + 0.5
	if g < 0 {
		return 0
	}
	return uint8(g)
}

// RxParameterSet computes the receiver parameter set for one phase. mod.Params must already
// hold the receiver values (M and RxDataRate), DeriveParams calls it for all four phases.
func RxParameterSet(cfg *Config, mod *Modulation, phase Phase) RxParamSet {
	par := &mod.Params
	xtalDiv := cfg.XtalDiv()
	var s RxParamSet

	// AGC: attack corner at the bitrate, decay 128 times slower
	s.AGCAttack = agcGain(cfg.XtalFreq, xtalDiv, mod.Bitrate)
	s.AGCDecay = s.AGCAttack + 7
	switch phase {
	case PhaseDuring:
		// freeze the gain inside a packet
		s.AGCAttack = 0xF
		s.AGCDecay = 0xF
	case PhaseContinuous:
		s.AGCAttack += 2
		s.AGCDecay += 2
		fallthrough
	default:
		if s.AGCAttack > 0x8 {
			s.AGCAttack = 0x8
		}
		if s.AGCDecay > 0xE {
			s.AGCDecay = 0xE
		}
	}

	// timing recovery, tighter as the packet goes on
	var frac uint32
	switch phase {
	case PhaseInitial:
		frac = 4
	case PhaseAfterPattern1:
		frac = 16
	default:
		frac = 32
	}
	s.TimeGain = uint32(float32(par.RxDataRate) / float32(frac))
	if s.TimeGain >= par.RxDataRate-(1<<12) {
		s.TimeGain = par.RxDataRate - (1 << 12)
		s.TimeGainLimited = true
	}

	// datarate recovery
	switch phase {
	case PhaseInitial:
		frac = 256
	case PhaseAfterPattern1:
		frac = 512
	default:
		frac = 1024
	}
	s.DRGain = uint32(float32(par.RxDataRate) / float32(frac))

	// phase recovery and decimation filter bandwidth
	switch mod.scheme() {
	case MODULATION_ASK, MODULATION_PSK:
		s.FilterIdx = 0x3
		s.PhaseGain = 0x0
	default:
		s.FilterIdx = 0x3
		s.PhaseGain = 0x3
	}

	// baseband frequency recovery loop disabled
	s.BBGainPhaseDet = 0xF
	s.BBGainFreqDet = 0x1F

	// RF frequency recovery
	f := mod.Bitrate
	if !mod.fskFamily() {
		f = mod.Bitrate * 4
	}
	rg := rfRecoveryGain(cfg.XtalFreq, xtalDiv, f)
	if phase == PhaseDuring || phase == PhaseContinuous {
		rg += 4
	}
	if mod.FEC {
		rg += 2
	}
	if rg > 0xD {
		rg = 0xD
	}
	s.RFGainPhaseDet = rg
	s.RFGainFreqDet = rg

	// amplitude recovery
	switch mod.scheme() {
	case MODULATION_ASK, MODULATION_PSK:
		s.AmplFlags = AMPLGAIN_TRY_TO_CORRECT_ON_AGC_JUMP | AMPLGAIN_RECOVERY_AVERAGING
		if phase == PhaseInitial || phase == PhaseAfterPattern1 {
			s.AmplGain = 2
		} else {
			s.AmplGain = 8
		}
	default:
		s.AmplFlags = AMPLGAIN_RECOVERY_PEAKDET
		s.AmplGain = 6
	}

	// FSK receiver deviation, off while settling so the loop cannot lock to a wrong offset
	if mod.fskFamily() && (phase == PhaseAfterPattern1 || phase == PhaseDuring) {
		s.FreqDev = uint16(float64(float64(par.M*128)*0.8) + 0.5)
	}

	return s
}
