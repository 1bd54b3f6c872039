// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"periph.io/x/conn/v3/gpio"
)

// TCXO switches an external temperature compensated oscillator. The radio enables it around
// every operation that needs the reference clock running.
type TCXO interface {
	Enable() error
	Disable() error
}

// PinTCXO drives a TCXO enable line from a GPIO pin, active high.
type PinTCXO struct {
	Pin gpio.PinOut
}

// Enable drives the pin high.
func (t PinTCXO) Enable() error { return t.Pin.Out(gpio.High) }

// Disable drives the pin low.
func (t PinTCXO) Disable() error { return t.Pin.Out(gpio.Low) }

func (r *Radio) tcxoEnable() {
	if r.tcxo == nil || r.err != nil {
		return
	}
	if err := r.tcxo.Enable(); err != nil {
		r.err = err
	}
}

// tcxoDisable runs even after an earlier failure so the oscillator is not left on.
func (r *Radio) tcxoDisable() {
	if r.tcxo == nil {
		return
	}
	if err := r.tcxo.Disable(); err != nil && r.err == nil {
		r.err = err
	}
}
