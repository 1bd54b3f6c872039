// Copyright 2022 by Dan Crank, danno@danno.org

// Package ax5043 drives an ON Semiconductor AX5043 sub-GHz transceiver over SPI.
//
// It derives the chip's register values from a carrier frequency and a Modulation, writes them
// in the order the chip expects, ranges the VCOs, switches power modes and moves packets
// through the chunk based FIFO. Like the rest of this repository it is not interrupt driven:
// every wait polls a status register, bounded by Config.Poll.
package ax5043

import (
	"context"
	"fmt"
	"sync"
)

// ClockSource selects what drives the reference oscillator.
type ClockSource int

const (
	ClockCrystal ClockSource = iota
	ClockTCXO
)

// VCOType selects the VCO used by the synthesisers.
type VCOType int

const (
	VCOInternal VCOType = iota
	VCOInternalExternalInductor
	VCOExternal
)

// TxPath selects the transmitter output.
type TxPath int

const (
	TxPathDifferential TxPath = iota
	TxPathSingleEnded
)

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// Config contains the options used when initializing a Radio.
type Config struct {
	XtalFreq        uint32      // reference frequency in Hz
	ClockSource     ClockSource // crystal or TCXO
	LoadCapacitance uint16      // crystal load capacitance in pF, 0 leaves XTALCAP alone
	ErrorPPM        uint32      // reference accuracy in ppm, sets the default MaxDeltaCarrier
	VCOType         VCOType

	FreqA uint32 // synthesiser A frequency in Hz, used for TX and RX
	FreqB uint32 // synthesiser B frequency in Hz, 0 if unused and not ranged

	TxPath TxPath

	PktStoreFlags  uint8 // PKT_STORE_* metadata added to received packets
	PktAcceptFlags uint8 // PKT_ACCEPT_* in addition to multiple chunks, address failures and residue

	// TransmitPowerLimit caps Modulation.Power when positive.
	TransmitPowerLimit float32

	Poll   Poller    // bounds every busy-wait
	Logger LogPrintf // function to use for logging
	TCXO   TCXO      // enabled around operations needing the reference, nil if not switched
}

// XtalDiv is the reference division factor: 1 below 24.8MHz, otherwise 2.
func (c *Config) XtalDiv() uint8 {
	if c.XtalFreq < 24800000 {
		return 1
	}
	return 2
}

// PowerMode is the value of the PWRMODE register's low nibble.
type PowerMode uint8

const (
	PowerDown      PowerMode = 0
	PowerDeepSleep PowerMode = 1
	PowerStandby   PowerMode = 5
	PowerFIFOOn    PowerMode = 7
	PowerSynthRX   PowerMode = 8
	PowerFullRX    PowerMode = 9
	PowerWORRX     PowerMode = 11
	PowerSynthTX   PowerMode = 12
	PowerFullTX    PowerMode = 13
)

func (m PowerMode) String() string {
	switch m {
	case PowerDown:
		return "POWERDOWN"
	case PowerDeepSleep:
		return "DEEPSLEEP"
	case PowerStandby:
		return "STANDBY"
	case PowerFIFOOn:
		return "FIFOON"
	case PowerSynthRX:
		return "SYNTHRX"
	case PowerFullRX:
		return "FULLRX"
	case PowerWORRX:
		return "WORRX"
	case PowerSynthTX:
		return "SYNTHTX"
	case PowerFullTX:
		return "FULLTX"
	}
	return fmt.Sprintf("PWRMODE(%d)", uint8(m))
}

// Radio represents an AX5043 transceiver.
type Radio struct {
	// configuration
	bus  Bus    // register access
	cfg  Config // options from New
	tcxo TCXO   // reference oscillator switch, may be nil
	poll Poller // bounds for busy-waits
	// synthesisers
	synthA  Synthesiser
	synthB  Synthesiser
	fPLLRng uint32 // ranging clock in Hz
	// pin functions, written with every register sequence
	pinSysClk uint8
	pinDClk   uint8
	pinData   uint8
	pinAntSel uint8
	pinPwrAmp uint8
	// state
	sync.Mutex            // guard concurrent access to the radio
	mode       PowerMode  // last power mode written
	rx         rxAssembly // packet being read from the receive FIFO
	status     Status     // status word of the last bus transfer
	err        error      // first bus error since the last takeErr
	log        LogPrintf  // function to use for logging
}

// New initializes an AX5043 on bus: it checks the chip is there, resets it, programs the
// reference oscillator and ranges the VCOs in use. The radio is left in POWERDOWN.
func New(ctx context.Context, bus Bus, cfg Config) (*Radio, error) {
	r := newRadio(bus, cfg)
	if err := r.Init(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func newRadio(bus Bus, cfg Config) *Radio {
	r := &Radio{
		bus:       bus,
		cfg:       cfg,
		tcxo:      cfg.TCXO,
		poll:      cfg.Poll,
		synthA:    Synthesiser{Frequency: cfg.FreqA},
		synthB:    Synthesiser{Frequency: cfg.FreqB},
		pinSysClk: 1, // output 0
		pinDClk:   1,
		pinData:   1,
		pinAntSel: 1,
		pinPwrAmp: 7, // PA enable
		mode:      PowerDown,
		log:       func(format string, v ...interface{}) {},
	}
	if cfg.Logger != nil {
		r.log = func(format string, v ...interface{}) {
			cfg.Logger("ax5043: "+format, v...)
		}
	}
	return r
}

// Init checks and resets the chip and ranges the VCOs. New calls it, it can be called again to
// recover a radio that stopped responding.
func (r *Radio) Init(ctx context.Context) error {
	r.Lock()
	defer r.Unlock()

	if r.bus == nil {
		return ErrNoBus
	}
	r.err = nil

	scratch := r.readReg(REG_SCRATCH)
	if err := r.takeErr(); err != nil {
		return fmt.Errorf("ax5043: reading scratch: %w", err)
	}
	r.log("scratch %#02x", scratch)
	if scratch != SCRATCH_VALUE {
		return fmt.Errorf("%w: %#02x", ErrBadScratch, scratch)
	}

	rev := r.readReg(REG_SILICONREVISION)
	if err := r.takeErr(); err != nil {
		return fmt.Errorf("ax5043: reading silicon revision: %w", err)
	}
	r.log("silicon revision %#02x", rev)
	if rev != SILICONREVISION_VALUE {
		return fmt.Errorf("%w: %#02x", ErrBadRevision, rev)
	}

	// reset, then POWERDOWN which also clears the reset bit
	r.writeReg(REG_PWRMODE, PWRMODE_RST)
	r.setPowerMode(PowerDown)

	r.setXtalParameters()
	if err := r.takeErr(); err != nil {
		return fmt.Errorf("ax5043: init: %w", err)
	}

	r.synthA.RFDiv, r.synthA.VCORangeKnown = RFDivUnknown, false
	r.synthB.RFDiv, r.synthB.VCORangeKnown = RFDivUnknown, false
	return r.vcoRanging(ctx)
}

// DefaultParams derives mod.Params for this radio's reference oscillator. It must be called
// before mod is used with TxOn, RxOn or RxWOR.
func (r *Radio) DefaultParams(mod *Modulation) error {
	r.Lock()
	defer r.Unlock()
	return DeriveParams(&r.cfg, mod)
}

func (r *Radio) setPowerMode(m PowerMode) {
	r.mode = m
	r.writeReg(REG_PWRMODE, PWRMODE_REFEN_XOEN|uint8(m))
}

func (r *Radio) waitForOscillator(ctx context.Context) error {
	return r.waitFor(ctx, "oscillator stable", func() bool {
		return r.readReg(REG_XTALSTATUS)&XTALSTATUS_XTALRUN != 0
	})
}

func (r *Radio) waitForModem(ctx context.Context) error {
	return r.waitFor(ctx, "modem supply", func() bool {
		return r.readReg(REG_POWSTAT)&POWSTAT_SVMODEM != 0
	})
}

// TxOn programs the radio for mod and switches to FULLTX.
func (r *Radio) TxOn(ctx context.Context, mod *Modulation) error {
	if !mod.Params.IsSet {
		return ErrParamsNotSet
	}
	r.Lock()
	defer r.Unlock()

	if err := r.ranged(); err != nil {
		return fmt.Errorf("ax5043: tx on: %w", err)
	}
	r.log("going for transmit")
	r.setRegisters(mod, nil)
	r.setRegistersTx()

	r.tcxoEnable()
	r.fifoClear()
	r.setPowerMode(PowerFullTX)
	err := r.waitForOscillator(ctx)
	r.tcxoDisable()
	if err != nil {
		r.takeErr()
		return fmt.Errorf("ax5043: tx on: %w", err)
	}
	if err := r.takeErr(); err != nil {
		return fmt.Errorf("ax5043: tx on: %w", err)
	}
	return nil
}

// RxOn programs the radio for mod and switches to FULLRX. Metadata is added to received
// packets according to Config.PktStoreFlags.
func (r *Radio) RxOn(mod *Modulation) error {
	return r.rxOn(mod, nil, PowerFullRX)
}

// RxWOR programs the radio for mod and switches to wake-on-radio receive.
func (r *Radio) RxWOR(mod *Modulation, wake *WakeupConfig) error {
	if wake == nil {
		return fmt.Errorf("ax5043: wake-on-radio needs a wakeup configuration")
	}
	return r.rxOn(mod, wake, PowerWORRX)
}

func (r *Radio) rxOn(mod *Modulation, wake *WakeupConfig, mode PowerMode) error {
	if !mod.Params.IsSet {
		return ErrParamsNotSet
	}
	r.Lock()
	defer r.Unlock()

	if err := r.ranged(); err != nil {
		return fmt.Errorf("ax5043: rx on: %w", err)
	}
	r.log("going for receive, %s", mode)
	r.rx = rxAssembly{}
	r.setRegisters(mod, wake)
	r.setPowerMode(mode)
	r.setRegistersRx()
	r.tcxoEnable()
	r.fifoClear()
	if err := r.takeErr(); err != nil {
		return fmt.Errorf("ax5043: rx on: %w", err)
	}
	return nil
}

// TxPacket queues payload as one packet. The radio must be in FULLTX.
func (r *Radio) TxPacket(ctx context.Context, mod *Modulation, payload []byte) error {
	r.Lock()
	defer r.Unlock()

	if r.mode != PowerFullTX {
		return ErrNotTransmitting
	}
	if err := r.waitForModem(ctx); err != nil {
		return fmt.Errorf("ax5043: tx packet: %w", err)
	}
	if err := r.fifoTxData(ctx, mod, payload); err != nil {
		return err
	}
	r.log("packet of %d bytes written to fifo", len(payload))
	return nil
}

// TxZeros queues 1000 bit times of zeros. The radio must be in FULLTX.
func (r *Radio) TxZeros(ctx context.Context) error {
	r.Lock()
	defer r.Unlock()

	if r.mode != PowerFullTX {
		return ErrNotTransmitting
	}
	if err := r.waitForModem(ctx); err != nil {
		return fmt.Errorf("ax5043: tx zeros: %w", err)
	}
	if err := r.fifoWrite(ctx, zerosSegment); err != nil {
		return fmt.Errorf("ax5043: tx zeros: %w", err)
	}
	return nil
}

// Off waits for an ongoing transmission to finish and powers the radio down.
func (r *Radio) Off(ctx context.Context) error {
	r.Lock()
	defer r.Unlock()

	err := r.waitFor(ctx, "transmit finished", func() bool {
		switch r.readReg(REG_RADIOSTATE) & 0xF {
		case RADIOSTATE_TX_PLL_SETTLING, RADIOSTATE_TX, RADIOSTATE_TX_TAIL:
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("ax5043: off: %w", err)
	}
	r.setPowerMode(PowerDown)
	r.log("off")
	return r.takeErr()
}

// ForceOff powers the radio down immediately, even in the middle of a transmission.
func (r *Radio) ForceOff() error {
	r.Lock()
	defer r.Unlock()

	r.setPowerMode(PowerDown)
	return r.takeErr()
}

// SetPinFuncSysClk writes PINFUNCSYSCLK now and in every later register sequence.
func (r *Radio) SetPinFuncSysClk(f uint8) error {
	return r.setPinFunc(&r.pinSysClk, REG_PINFUNCSYSCLK, f)
}

// SetPinFuncDClk writes PINFUNCDCLK now and in every later register sequence.
func (r *Radio) SetPinFuncDClk(f uint8) error {
	return r.setPinFunc(&r.pinDClk, REG_PINFUNCDCLK, f)
}

// SetPinFuncData writes PINFUNCDATA now and in every later register sequence.
func (r *Radio) SetPinFuncData(f uint8) error {
	return r.setPinFunc(&r.pinData, REG_PINFUNCDATA, f)
}

// SetPinFuncAntSel writes PINFUNCANTSEL now and in every later register sequence.
func (r *Radio) SetPinFuncAntSel(f uint8) error {
	return r.setPinFunc(&r.pinAntSel, REG_PINFUNCANTSEL, f)
}

// SetPinFuncPwrAmp writes PINFUNCPWRAMP now and in every later register sequence.
func (r *Radio) SetPinFuncPwrAmp(f uint8) error {
	return r.setPinFunc(&r.pinPwrAmp, REG_PINFUNCPWRAMP, f)
}

func (r *Radio) setPinFunc(field *uint8, reg Reg8, f uint8) error {
	r.Lock()
	defer r.Unlock()

	*field = f
	r.writeReg(reg, f)
	return r.takeErr()
}

// SetTxPath switches the transmitter output immediately and for later register sequences.
func (r *Radio) SetTxPath(p TxPath) error {
	r.Lock()
	defer r.Unlock()

	r.cfg.TxPath = p
	v := r.readReg(REG_MODCFGA)
	r.writeReg(REG_MODCFGA, v&^0x3|txPathBits(p))
	return r.takeErr()
}

// Mode returns the last power mode written.
func (r *Radio) Mode() PowerMode {
	r.Lock()
	defer r.Unlock()
	return r.mode
}

// Status returns the status word clocked out during the last bus transfer.
func (r *Radio) Status() Status {
	r.Lock()
	defer r.Unlock()
	return r.status
}

// Synthesisers returns a copy of the state of synthesisers A and B.
func (r *Radio) Synthesisers() (a, b Synthesiser) {
	r.Lock()
	defer r.Unlock()
	return r.synthA, r.synthB
}

// LogRegs is a debug helper to print the directly addressed registers. FIFODATA is skipped so
// the receive FIFO is not disturbed.
func (r *Radio) LogRegs() error {
	r.Lock()
	defer r.Unlock()

	var regs [longAccessThreshold + 1]byte
	for i := range regs {
		if Reg8(i) == REG_FIFODATA {
			continue
		}
		regs[i] = r.readReg(Reg8(i))
	}
	r.log("     0  1  2  3  4  5  6  7  8  9  A  B  C  D  E  F")
	for i := 0; i < len(regs); i += 16 {
		line := fmt.Sprintf("%02x:", i)
		for j := 0; j < 16 && i+j < len(regs); j++ {
			line += fmt.Sprintf(" %02x", regs[i+j])
		}
		r.log(line)
	}
	return r.takeErr()
}
