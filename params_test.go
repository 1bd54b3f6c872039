// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"errors"
	"testing"
)

func mustDerive(t *testing.T, mod Modulation) Modulation {
	t.Helper()
	cfg := testConfig()
	if err := DeriveParams(&cfg, &mod); err != nil {
		t.Fatal(err)
	}
	return mod
}

func TestDeriveReceiver(t *testing.T) {
	tests := []struct {
		name      string
		mod       Modulation
		bw        uint32
		iff       uint32
		iffreq    uint32
		dec       uint32
		rdr       uint32
		fskd      uint32
		afskShift uint8
	}{
		{"gfsk 2000", GFSKHDLC(), 3000, 3180, 204, 68, 15406, 172, 3},
		{"gmsk fec 20000", GMSKHDLCFEC(), 26666, 22221, 1423, 8, 13095, 130, 3},
		{"fsk fec 1200", FSKHDLCFEC(), 1800, 3180, 204, 114, 15316, 172, 3},
		{"afsk 1200", APRS(), 3000, 3180, 204, 68, 25677, 1300, 5},
		{"psk 2000", Modulation{Scheme: MODULATION_PSK, Bitrate: 2000}, 2000, 9380, 601, 102, 10271, 0x80, 2},
		{"fsk 100000", Modulation{Scheme: MODULATION_FSK, Bitrate: 100000, FSK: FSKParams{ModulationIndex: 2.0 / 3}},
			150000, 125000, 8007, 1, 20952, 172, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod := mustDerive(t, tt.mod)
			par := &mod.Params
			if !par.IsSet {
				t.Error("IsSet not set")
			}
			if par.RxBandwidth != tt.bw {
				t.Errorf("bandwidth %d, want %d", par.RxBandwidth, tt.bw)
			}
			if par.FBaseband != 5*tt.bw {
				t.Errorf("baseband %d, want %d", par.FBaseband, 5*tt.bw)
			}
			if par.IFFrequency != tt.iff {
				t.Errorf("if frequency %d, want %d", par.IFFrequency, tt.iff)
			}
			if par.IFFreq != tt.iffreq {
				t.Errorf("IFFREQ %d, want %d", par.IFFreq, tt.iffreq)
			}
			if par.Decimation != tt.dec {
				t.Errorf("decimation %d, want %d", par.Decimation, tt.dec)
			}
			if par.RxDataRate != tt.rdr {
				t.Errorf("RXDATARATE %d, want %d", par.RxDataRate, tt.rdr)
			}
			if par.FSKD != tt.fskd {
				t.Errorf("FSKD %d, want %d", par.FSKD, tt.fskd)
			}
			if par.AFSKShift != tt.afskShift {
				t.Errorf("AFSK shift %d, want %d", par.AFSKShift, tt.afskShift)
			}
			if par.DecimationCapped || par.BandwidthGuessed {
				t.Error("unexpected clamp or guess")
			}
		})
	}
}

func TestDeriveModulationIndex(t *testing.T) {
	if m := mustDerive(t, GFSKHDLC()).Params.M; m != float32(2.0/3) {
		t.Errorf("FSK m = %v", m)
	}
	if m := mustDerive(t, GMSK()).Params.M; m != 0.5 {
		t.Errorf("MSK m = %v, want 0.5", m)
	}
	if m := mustDerive(t, APRS()).Params.M; m != 5 {
		t.Errorf("AFSK m = %v, want 5", m)
	}
	if m := mustDerive(t, Modulation{Scheme: MODULATION_PSK, Bitrate: 2000}).Params.M; m != 0 {
		t.Errorf("PSK m = %v, want 0", m)
	}
}

func TestDeriveMaxRFOffset(t *testing.T) {
	mod := mustDerive(t, GFSKHDLC())
	if mod.MaxDeltaCarrier != 1000 {
		t.Errorf("MaxDeltaCarrier defaulted to %d, want 1000", mod.MaxDeltaCarrier)
	}
	if mod.Params.MaxRFOffset != 1025 {
		t.Errorf("MAXRFOFFSET %d, want 1025", mod.Params.MaxRFOffset)
	}
	m := GFSKHDLC()
	m.MaxDeltaCarrier = 5000
	if got := mustDerive(t, m).Params.MaxRFOffset; got != 5125 {
		t.Errorf("MAXRFOFFSET for 5kHz %d, want 5125", got)
	}
}

func TestDeriveMaxDeltaCarrierFromErrorPPM(t *testing.T) {
	cfg := testConfig()
	cfg.ErrorPPM = 10
	mod := GFSKHDLC()
	if err := DeriveParams(&cfg, &mod); err != nil {
		t.Fatal(err)
	}
	if mod.MaxDeltaCarrier != 4346 {
		t.Errorf("MaxDeltaCarrier %d, want 4346", mod.MaxDeltaCarrier)
	}
	if mod.Params.MaxRFOffset != 4454 {
		t.Errorf("MAXRFOFFSET %d, want 4454", mod.Params.MaxRFOffset)
	}

	cfg.ErrorPPM = 2 // 869Hz at the carrier
	mod = GFSKHDLC()
	if err := DeriveParams(&cfg, &mod); err != nil {
		t.Fatal(err)
	}
	if mod.MaxDeltaCarrier != 1000 {
		t.Errorf("MaxDeltaCarrier %d, want the 1kHz floor", mod.MaxDeltaCarrier)
	}
}

func TestDeriveDecimationCapped(t *testing.T) {
	mod := GFSKHDLC()
	mod.Bitrate = 50
	mod = mustDerive(t, mod)
	if mod.Params.Decimation != 127 || !mod.Params.DecimationCapped {
		t.Errorf("decimation %d capped %v, want 127 true", mod.Params.Decimation, mod.Params.DecimationCapped)
	}
	if mod.Params.RxDataRate != 329958 {
		t.Errorf("RXDATARATE %d, want 329958", mod.Params.RxDataRate)
	}
	s := mod.Params.RxParamSets[PhaseInitial]
	if s.AGCAttack != 8 || s.AGCDecay != 14 {
		t.Errorf("agc %d/%d, want 8/14", s.AGCAttack, s.AGCDecay)
	}
}

func TestDeriveBandwidthGuessed(t *testing.T) {
	mod := mustDerive(t, Modulation{Scheme: MODULATION_4FSK, Bitrate: 1000})
	if !mod.Params.BandwidthGuessed || mod.Params.RxBandwidth != 4000 {
		t.Errorf("bandwidth %d guessed %v, want 4000 true", mod.Params.RxBandwidth, mod.Params.BandwidthGuessed)
	}
	if mod.Params.IFFrequency != 4000 {
		t.Errorf("if frequency %d, want the bandwidth", mod.Params.IFFrequency)
	}
}

func TestDeriveInvalid(t *testing.T) {
	cfg := testConfig()
	mod := GFSKHDLC()
	mod.Bitrate = 0
	if err := DeriveParams(&cfg, &mod); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("zero bitrate: %v", err)
	}
	cfg.XtalFreq = 0
	mod = GFSKHDLC()
	if err := DeriveParams(&cfg, &mod); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("zero crystal: %v", err)
	}
	if mod.Params.IsSet {
		t.Error("IsSet after a failed derivation")
	}
}

func TestDeriveConstants(t *testing.T) {
	par := mustDerive(t, GMSK()).Params
	if par.Match1Threshold != 10 || par.Match0Threshold != 28 {
		t.Errorf("match thresholds %d/%d", par.Match1Threshold, par.Match0Threshold)
	}
	if par.TxPLLBoostTime != 38 || par.TxPLLSettleTime != 20 || par.RxCoarseAGC != 152 ||
		par.RxRSSISettling != 3 || par.Preamble2Timeout != 23 || par.RSSIAbsThr != 221 {
		t.Errorf("packet controller timing %+v", par)
	}
}

type phaseWant struct {
	attack, decay uint8
	timeGain      uint32
	drGain        uint32
	rfGain        uint8
	freqDev       uint16
}

func checkPhases(t *testing.T, mod Modulation, want [4]phaseWant) {
	t.Helper()
	for ph := PhaseInitial; ph <= PhaseContinuous; ph++ {
		s := mod.Params.RxParamSets[ph]
		w := want[ph]
		if s.AGCAttack != w.attack || s.AGCDecay != w.decay {
			t.Errorf("%s: agc %d/%d, want %d/%d", ph, s.AGCAttack, s.AGCDecay, w.attack, w.decay)
		}
		if s.TimeGain != w.timeGain || s.DRGain != w.drGain {
			t.Errorf("%s: time gain %d dr gain %d, want %d %d", ph, s.TimeGain, s.DRGain, w.timeGain, w.drGain)
		}
		if s.RFGainPhaseDet != w.rfGain || s.RFGainFreqDet != w.rfGain {
			t.Errorf("%s: rf gain %d/%d, want %d", ph, s.RFGainPhaseDet, s.RFGainFreqDet, w.rfGain)
		}
		if s.FreqDev != w.freqDev {
			t.Errorf("%s: freq dev %d, want %d", ph, s.FreqDev, w.freqDev)
		}
		if s.BBGainPhaseDet != 0xF || s.BBGainFreqDet != 0x1F || s.FilterIdx != 3 {
			t.Errorf("%s: baseband loop %+v", ph, s)
		}
	}
}

func TestRxParamSetsFSK(t *testing.T) {
	checkPhases(t, mustDerive(t, GFSKHDLC()), [4]phaseWant{
		{6, 13, 3851, 60, 11, 0},
		{6, 13, 962, 30, 11, 68},
		{15, 15, 481, 15, 13, 68},
		{8, 14, 481, 15, 13, 0},
	})
}

func TestRxParamSetsMSKFEC(t *testing.T) {
	checkPhases(t, mustDerive(t, GMSKHDLCFEC()), [4]phaseWant{
		{2, 9, 3273, 51, 10, 0},
		{2, 9, 818, 25, 10, 51},
		{15, 15, 409, 12, 13, 51},
		{4, 11, 409, 12, 13, 0},
	})
}

func TestRxParamSetsAFSK(t *testing.T) {
	checkPhases(t, mustDerive(t, APRS()), [4]phaseWant{
		{7, 14, 6419, 100, 12, 0},
		{7, 14, 1604, 50, 12, 512},
		{15, 15, 802, 25, 13, 512},
		{8, 14, 802, 25, 13, 0},
	})
}

func TestRxParamSetsFastFSK(t *testing.T) {
	mod := Modulation{Scheme: MODULATION_FSK, Bitrate: 100000, FSK: FSKParams{ModulationIndex: 2.0 / 3}}
	checkPhases(t, mustDerive(t, mod), [4]phaseWant{
		{0, 7, 5238, 81, 5, 0},
		{0, 7, 1309, 40, 5, 68},
		{15, 15, 654, 20, 9, 68},
		{2, 9, 654, 20, 9, 0},
	})
}

func TestRxParamSetsPSK(t *testing.T) {
	mod := mustDerive(t, Modulation{Scheme: MODULATION_PSK, Bitrate: 2000})
	checkPhases(t, mod, [4]phaseWant{
		{6, 13, 2567, 40, 9, 0},
		{6, 13, 641, 20, 9, 0},
		{15, 15, 320, 10, 13, 0},
		{8, 14, 320, 10, 13, 0},
	})
	wantAmpl := [4]uint8{2, 2, 8, 8}
	for ph, s := range mod.Params.RxParamSets {
		if s.PhaseGain != 0 {
			t.Errorf("%s: phase gain %d, want 0", Phase(ph), s.PhaseGain)
		}
		if s.AmplGain != wantAmpl[ph] || s.AmplFlags != 0xC0 {
			t.Errorf("%s: amplitude gain %d flags %#02x, want %d 0xc0", Phase(ph), s.AmplGain, s.AmplFlags, wantAmpl[ph])
		}
	}
}

func TestRxParamSetsTimeGainLimit(t *testing.T) {
	cfg := testConfig()
	mod := GFSKHDLC()
	mod.Params.RxDataRate = 5000
	s := RxParameterSet(&cfg, &mod, PhaseInitial)
	if s.TimeGain != 5000-4096 || !s.TimeGainLimited {
		t.Errorf("time gain %d limited %v, want %d true", s.TimeGain, s.TimeGainLimited, 5000-4096)
	}
	mod.Params.RxDataRate = 15406
	s = RxParameterSet(&cfg, &mod, PhaseInitial)
	if s.TimeGainLimited {
		t.Error("time gain limited at 15406")
	}
}

func TestAGCGainSaturates(t *testing.T) {
	if g := agcGain(16369000, 1, 1000000); g != 0 {
		t.Errorf("agcGain above the corner = %d, want 0", g)
	}
	if g := rfRecoveryGain(16369000, 1, 10000000); g != 0 {
		t.Errorf("rfRecoveryGain above the crystal = %d, want 0", g)
	}
}

func TestPhaseString(t *testing.T) {
	if s := PhaseAfterPattern1.String(); s != "after-pattern1" {
		t.Errorf("String = %q", s)
	}
	if s := Phase(9).String(); s != "phase?" {
		t.Errorf("String = %q", s)
	}
}
