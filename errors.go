// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"errors"
	"fmt"
)

var (
	// ErrNoBus is returned by Init when the radio was created without a register bus.
	ErrNoBus = errors.New("ax5043: no register bus")
	// ErrBadScratch is returned by Init when the scratch register does not read 0xC5.
	ErrBadScratch = errors.New("ax5043: bad scratch value")
	// ErrBadRevision is returned by Init when the silicon revision is not 0x51.
	ErrBadRevision = errors.New("ax5043: bad silicon revision")
	// ErrRangingFailed is matched by every *RangingError.
	ErrRangingFailed = errors.New("ax5043: VCO ranging failed")
	// ErrParamsNotSet is returned when entering TX or RX with a modulation whose derived
	// parameters were never populated by DefaultParams.
	ErrParamsNotSet = errors.New("ax5043: modulation parameters not set")
	// ErrNotTransmitting is returned when the FIFO is written outside of FULLTX.
	ErrNotTransmitting = errors.New("ax5043: power mode must be FULLTX to write the FIFO")
	// ErrDeepSleep is returned by AdjustFrequency while the chip is in DEEPSLEEP.
	ErrDeepSleep = errors.New("ax5043: cannot adjust frequency in deep sleep")
	// ErrPacketSize is returned when a received packet overflows the packet buffer.
	ErrPacketSize = errors.New("ax5043: received packet too long")
	// ErrTimeout is returned when a bounded poll gives up.
	ErrTimeout = errors.New("ax5043: timeout")
)

// RangingError reports which synthesiser failed to range and the PLLRANGING value read back.
type RangingError struct {
	Synth   string
	Ranging byte
}

func (e *RangingError) Error() string {
	return fmt.Sprintf("ax5043: VCO ranging failed on synthesiser %s (PLLRANGING %#02x)", e.Synth, e.Ranging)
}

// Is makes errors.Is(err, ErrRangingFailed) true for any ranging error.
func (e *RangingError) Is(target error) bool { return target == ErrRangingFailed }

// timeoutError carries the name of the condition that was being waited for.
type timeoutError struct {
	what string
}

func (e *timeoutError) Error() string { return "ax5043: timeout waiting for " + e.what }
func (e *timeoutError) Is(t error) bool { return t == ErrTimeout }

// Temporary is implemented by errors that are worth retrying. Bounded poll timeouts are.
type Temporary interface {
	Temporary() bool
}

func (e *timeoutError) Temporary() bool { return true }
