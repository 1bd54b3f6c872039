// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"context"
	"fmt"
	"math"
)

// RFDiv is the state of a synthesiser's RF output divider.
type RFDiv int

const (
	RFDivUnknown RFDiv = iota // chosen at the next ranging
	RFDivNone                 // carrier at the VCO frequency
	RFDivTwo                  // VCO divided by two, below 525MHz
)

// rfDivThreshold is the carrier frequency below which the divider is used.
const rfDivThreshold = 525000000

// Synthesiser is the state of one of the two frequency synthesisers.
type Synthesiser struct {
	Frequency           uint32 // carrier in Hz, 0 if unused
	RegisterValue       uint32 // last value written to FREQA or FREQB
	RFDiv               RFDiv
	LastRangedFrequency uint32
	VCORangeKnown       bool
	VCORange            uint8        // 4 bits, valid when VCORangeKnown
	Ranging             RangingState // progress of the last ranging
}

// RangingState tracks the progress of VCO autoranging on one synthesiser.
type RangingState int

const (
	RangingStandby RangingState = iota
	RangingFrequencySet
	RangingOscillatorWait
	RangingStart
	RangingPoll
	RangingDone
	RangingFailed
)

func (s RangingState) String() string {
	switch s {
	case RangingStandby:
		return "standby"
	case RangingFrequencySet:
		return "frequency-set"
	case RangingOscillatorWait:
		return "oscillator-wait"
	case RangingStart:
		return "start"
	case RangingPoll:
		return "poll"
	case RangingDone:
		return "done"
	case RangingFailed:
		return "failed"
	}
	return "ranging?"
}

// synthRef names a synthesiser and its PLLRANGING register.
type synthRef struct {
	name string
	reg  Reg8
	s    *Synthesiser
}

// inUse returns the synthesisers that have a frequency, A first.
func (r *Radio) inUse() []synthRef {
	var out []synthRef
	if r.synthA.Frequency != 0 {
		out = append(out, synthRef{"A", REG_PLLRANGINGA, &r.synthA})
	}
	if r.synthB.Frequency != 0 {
		out = append(out, synthRef{"B", REG_PLLRANGINGB, &r.synthB})
	}
	return out
}

// FrequencyRegister returns the FREQA/FREQB value for a carrier of f Hz. Bit 0 is always set
// to avoid spectral tones.
func FrequencyRegister(f, fxtal uint32) uint32 {
	v := uint32(math.Round(float64(f) * (1 << 23) / float64(float32(fxtal))))
	return v<<1 | 1
}

// FrequencyFromRegister is the inverse of FrequencyRegister, rounded down to the Hz.
func FrequencyFromRegister(reg, fxtal uint32) uint32 {
	return uint32(uint64(reg>>1) * uint64(fxtal) >> 23)
}

func (r *Radio) setRanging(st RangingState, synths ...synthRef) {
	for _, sy := range synths {
		sy.s.Ranging = st
		r.log("ranging %s %s", sy.name, st)
	}
}

// setSynthFrequencies writes the frequency registers of the synthesisers that have a
// frequency.
func (r *Radio) setSynthFrequencies() {
	for _, sy := range r.inUse() {
		sy.s.RegisterValue = FrequencyRegister(sy.s.Frequency, r.cfg.XtalFreq)
		if sy.s == &r.synthA {
			r.writeReg32(REG_FREQA, sy.s.RegisterValue)
		} else {
			r.writeReg32(REG_FREQB, sy.s.RegisterValue)
		}
	}
}

// vcoRanging ranges the synthesisers that have a frequency, A then B, and leaves the chip
// in POWERDOWN. Re-ranging is needed after a change of more than about 5MHz at 868/915MHz
// or 2.5MHz at 433MHz.
func (r *Radio) vcoRanging(ctx context.Context) error {
	synths := r.inUse()
	r.log("starting vco ranging on %d synthesisers", len(synths))
	r.setRanging(RangingStandby, synths...)
	r.tcxoEnable()
	r.setPowerMode(PowerStandby)

	r.setRanging(RangingFrequencySet, synths...)
	r.setSynthFrequencies()
	// 1350uA VCO1, 270uA VCO2
	r.writeReg(REG_PLLVCOI, PLLVCOI_ENABLE_MANUAL|27)

	r.setRanging(RangingOscillatorWait, synths...)
	if err := r.waitForOscillator(ctx); err != nil {
		r.setRanging(RangingFailed, synths...)
		r.setPowerMode(PowerDown)
		r.tcxoDisable()
		r.takeErr()
		return fmt.Errorf("ax5043: vco ranging: %w", err)
	}

	var first error
	for _, sy := range synths {
		if err := r.rangeSynth(ctx, sy); err != nil && first == nil {
			first = err
		}
	}

	r.setPowerMode(PowerDown)
	r.tcxoDisable()
	if err := r.takeErr(); err != nil {
		for _, sy := range synths {
			sy.s.VCORangeKnown = false
		}
		r.setRanging(RangingFailed, synths...)
		return fmt.Errorf("ax5043: vco ranging: %w", err)
	}
	return first
}

// rangeSynth runs autoranging on one synthesiser and records the result in it.
func (r *Radio) rangeSynth(ctx context.Context, sy synthRef) error {
	s := sy.s
	if !s.VCORangeKnown {
		s.VCORange = 8
	}
	if s.RFDiv == RFDivUnknown {
		if s.Frequency < rfDivThreshold {
			s.RFDiv = RFDivTwo
		} else {
			s.RFDiv = RFDivNone
		}
	}
	r.setSynthesiserParameters(synthRanging, s)

	r.setRanging(RangingStart, sy)
	r.writeReg(sy.reg, s.VCORange|PLLRANGING_RNG_START)

	r.setRanging(RangingPoll, sy)
	var v uint8
	err := r.waitFor(ctx, "ranging "+sy.name, func() bool {
		v = r.readReg(sy.reg)
		return v&PLLRANGING_RNG_START == 0
	})
	if err != nil {
		r.setRanging(RangingFailed, sy)
		return fmt.Errorf("ax5043: vco ranging %s: %w", sy.name, err)
	}
	if v&PLLRANGING_RNGERR != 0 {
		r.setRanging(RangingFailed, sy)
		return &RangingError{Synth: sy.name, Ranging: v}
	}
	r.log("ranging %s done r = %#02x", sy.name, v)
	s.VCORange = v & 0xF
	s.VCORangeKnown = true
	s.LastRangedFrequency = s.Frequency
	r.setRanging(RangingDone, sy)
	return nil
}

// ranged returns an error matching ErrRangingFailed unless synthesiser A, which carries TX
// and RX, has a known VCO range.
func (r *Radio) ranged() error {
	if !r.synthA.VCORangeKnown {
		return fmt.Errorf("%w: synthesiser A not ranged (%s)", ErrRangingFailed, r.synthA.Ranging)
	}
	return nil
}

// AdjustFrequency moves synthesiser A to f Hz. The synthesisers in use are ranged again when
// f is more than 1/256 away from the frequency A was last ranged at, which leaves the chip in
// POWERDOWN. Otherwise only the frequency registers are rewritten.
func (r *Radio) AdjustFrequency(ctx context.Context, f uint32) error {
	r.Lock()
	defer r.Unlock()

	if r.mode == PowerDeepSleep {
		return ErrDeepSleep
	}
	err := r.waitFor(ctx, "transmit finished", func() bool {
		return r.readReg(REG_RADIOSTATE)&0xF != RADIOSTATE_TX
	})
	if err != nil {
		return fmt.Errorf("ax5043: adjust frequency: %w", err)
	}

	s := &r.synthA
	s.Frequency = f
	delta := int64(s.LastRangedFrequency) - int64(f)
	if delta < 0 {
		delta = -delta
	}
	if delta > int64(s.LastRangedFrequency/256) {
		r.log("adjust frequency %dHz: re-ranging", f)
		s.RFDiv = RFDivUnknown
		s.VCORangeKnown = false
		return r.vcoRanging(ctx)
	}
	r.setSynthFrequencies()
	return r.takeErr()
}

// ForceQuickAdjustFrequency moves synthesiser A to f Hz without ranging. The caller must
// keep the change below 1/256 of the carrier and be in a mode where this is allowed.
func (r *Radio) ForceQuickAdjustFrequency(f uint32) error {
	r.Lock()
	defer r.Unlock()

	r.synthA.Frequency = f
	r.setSynthFrequencies()
	return r.takeErr()
}
