// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

// Status is the chip status word clocked out on MISO while the address header is sent. For
// short accesses only the high byte is valid.
type Status uint16

// Bus gives access to the AX5043 register space. Multi-byte values are transferred MSB first
// and reading or writing FIFODATA with a longer buffer moves that many FIFO bytes.
type Bus interface {
	Read(addr uint16, p []byte) (Status, error)
	Write(addr uint16, p []byte) (Status, error)
}

// DefaultSPISpeed is the bus clock used by NewSPIBus when speed is zero.
const DefaultSPISpeed = 500 * physic.KiloHertz

// SPIBus implements Bus on top of a periph.io SPI port.
type SPIBus struct {
	conn spi.Conn
}

// NewSPIBus connects to the radio on port in SPI mode 0.
func NewSPIBus(port spi.Port, speed physic.Frequency) (*SPIBus, error) {
	if speed == 0 {
		speed = DefaultSPISpeed
	}
	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("ax5043: cannot set device params: %w", err)
	}
	return &SPIBus{conn: conn}, nil
}

// Read reads len(p) bytes starting at addr.
func (b *SPIBus) Read(addr uint16, p []byte) (Status, error) {
	return b.tx(addr, false, p)
}

// Write writes p starting at addr.
func (b *SPIBus) Write(addr uint16, p []byte) (Status, error) {
	return b.tx(addr, true, p)
}

func (b *SPIBus) tx(addr uint16, write bool, p []byte) (Status, error) {
	hdr := header(addr, write)
	wBuf := make([]byte, len(hdr)+len(p))
	rBuf := make([]byte, len(hdr)+len(p))
	copy(wBuf, hdr)
	if write {
		copy(wBuf[len(hdr):], p)
	} else {
		for i := len(hdr); i < len(wBuf); i++ {
			wBuf[i] = 0xFF
		}
	}
	if err := b.conn.Tx(wBuf, rBuf); err != nil {
		return 0, fmt.Errorf("ax5043: spi transfer at %#03x: %w", addr, err)
	}
	if !write {
		copy(p, rBuf[len(hdr):])
	}
	status := Status(rBuf[0]) << 8
	if len(hdr) == 2 {
		status |= Status(rBuf[1])
	}
	return status, nil
}

// header builds the address header. Addresses up to 0x70 use one byte with the write flag in
// bit 7, higher ones use two bytes with 0xF0 (write) or 0x70 (read) above the address.
func header(addr uint16, write bool) []byte {
	if addr > longAccessThreshold {
		cmd := byte(0x70)
		if write {
			cmd = 0xF0
		}
		return []byte{cmd | byte(addr>>8)&0x0F, byte(addr)}
	}
	cmd := byte(0)
	if write {
		cmd = 0x80
	}
	return []byte{cmd | byte(addr)&0x7F}
}

// The helpers below keep the first bus error in r.err so register sequences can be written
// without checking every access; callers collect it with r.takeErr.

func (r *Radio) write(addr uint16, p []byte) {
	if r.err != nil {
		return
	}
	st, err := r.bus.Write(addr, p)
	if err != nil {
		r.err = err
		return
	}
	r.status = st
}

func (r *Radio) read(addr uint16, p []byte) {
	if r.err != nil {
		for i := range p {
			p[i] = 0
		}
		return
	}
	st, err := r.bus.Read(addr, p)
	if err != nil {
		r.err = err
		for i := range p {
			p[i] = 0
		}
		return
	}
	r.status = st
}

func (r *Radio) takeErr() error {
	err := r.err
	r.err = nil
	return err
}

// writeReg writes an 8-bit register.
func (r *Radio) writeReg(reg Reg8, v uint8) {
	r.write(uint16(reg), []byte{v})
}

// writeReg16 writes a 16-bit register, MSB first.
func (r *Radio) writeReg16(reg Reg16, v uint16) {
	r.write(uint16(reg), []byte{byte(v >> 8), byte(v)})
}

// writeReg24 writes a 24-bit register, MSB first.
func (r *Radio) writeReg24(reg Reg24, v uint32) {
	r.write(uint16(reg), []byte{byte(v >> 16), byte(v >> 8), byte(v)})
}

// writeReg32 writes a 32-bit register, MSB first.
func (r *Radio) writeReg32(reg Reg32, v uint32) {
	r.write(uint16(reg), []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

// readReg reads one register and returns its value.
func (r *Radio) readReg(reg Reg8) uint8 {
	var buf [1]byte
	r.read(uint16(reg), buf[:])
	return buf[0]
}

// readReg16 reads one 16-bit register and returns its value.
func (r *Radio) readReg16(reg Reg16) uint16 {
	var buf [2]byte
	r.read(uint16(reg), buf[:])
	return uint16(buf[0])<<8 | uint16(buf[1])
}

// writeFIFO streams p into the transmit FIFO.
func (r *Radio) writeFIFO(p []byte) {
	r.write(uint16(REG_FIFODATA), p)
}

// readFIFO fills p from the receive FIFO.
func (r *Radio) readFIFO(p []byte) {
	r.read(uint16(REG_FIFODATA), p)
}
