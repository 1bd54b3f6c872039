// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

import (
	"context"
	"fmt"
	"time"
)

// FIFO chunk tags. The top three bits give the payload size: 0 to 3 bytes, or 7 for a
// length byte followed by that many bytes.
const (
	FIFO_CHUNK_NOP        = 0x00
	FIFO_CHUNK_RSSI       = 0x31
	FIFO_CHUNK_TXCTRL     = 0x3C
	FIFO_CHUNK_FREQOFFS   = 0x52
	FIFO_CHUNK_ANTRSSI2   = 0x55
	FIFO_CHUNK_REPEATDATA = 0x62
	FIFO_CHUNK_TIMER      = 0x70
	FIFO_CHUNK_RFFREQOFFS = 0x73
	FIFO_CHUNK_DATARATE   = 0x74
	FIFO_CHUNK_ANTRSSI3   = 0x75
	FIFO_CHUNK_DATA       = 0xE1
	FIFO_CHUNK_TXPWR      = 0xFD
)

// Flags of transmitted DATA and REPEATDATA chunks.
const (
	FIFO_TXDATA_UNENC    = 0x20 // bypass framing and encoder
	FIFO_TXDATA_RAW      = 0x10 // bypass framing
	FIFO_TXDATA_NOCRC    = 0x08
	FIFO_TXDATA_RESIDUE  = 0x04
	FIFO_TXDATA_PKTEND   = 0x02
	FIFO_TXDATA_PKTSTART = 0x01
)

// Flags of received DATA chunks.
const (
	FIFO_RXDATA_ABORT    = 0x40
	FIFO_RXDATA_SIZEFAIL = 0x20
	FIFO_RXDATA_ADDRFAIL = 0x10
	FIFO_RXDATA_CRCFAIL  = 0x08
	FIFO_RXDATA_RESIDUE  = 0x04
	FIFO_RXDATA_PKTEND   = 0x02
	FIFO_RXDATA_PKTSTART = 0x01
)

const (
	fifoSize = 256

	// txChunkSize is the largest DATA chunk written while transmitting.
	txChunkSize = 200

	// MaxPacketLength is the largest packet ReceivePacket assembles.
	MaxPacketLength = 0x200

	// pktPartData marks the packet data as complete in the assembly bitmap. The other bits
	// are the PKT_STORE_* flags of the metadata chunks.
	pktPartData = 0x80
)

// Chunk is one record read from the receive FIFO. It is one of *DataChunk, *RSSIChunk,
// *FreqOffsetChunk, *AntRSSI2Chunk, *TimerChunk, *RFFreqOffsetChunk, *DataRateChunk,
// *AntRSSI3Chunk or *UnknownChunk.
type Chunk interface {
	Tag() uint8
}

// DataChunk carries packet data. Flags are FIFO_RXDATA_*.
type DataChunk struct {
	Flags uint8
	Data  []byte
}

type RSSIChunk struct {
	RSSI int16 // dB
}

type FreqOffsetChunk struct {
	Offset int16
}

type AntRSSI2Chunk struct {
	RSSI      uint8
	BgndNoise uint8
}

type TimerChunk struct {
	Timer uint32 // 24 bits
}

type RFFreqOffsetChunk struct {
	Offset int32 // sign extended from 24 bits
}

type DataRateChunk struct {
	DataRate uint32 // 24 bits
}

type AntRSSI3Chunk struct {
	Ant0RSSI  uint8
	Ant1RSSI  uint8
	BgndNoise uint8
}

// UnknownChunk is a chunk this package does not decode. Its payload is consumed according to
// the size bits of the tag.
type UnknownChunk struct {
	Type uint8
	Data []byte
}

func (*DataChunk) Tag() uint8         { return FIFO_CHUNK_DATA }
func (*RSSIChunk) Tag() uint8         { return FIFO_CHUNK_RSSI }
func (*FreqOffsetChunk) Tag() uint8   { return FIFO_CHUNK_FREQOFFS }
func (*AntRSSI2Chunk) Tag() uint8     { return FIFO_CHUNK_ANTRSSI2 }
func (*TimerChunk) Tag() uint8        { return FIFO_CHUNK_TIMER }
func (*RFFreqOffsetChunk) Tag() uint8 { return FIFO_CHUNK_RFFREQOFFS }
func (*DataRateChunk) Tag() uint8     { return FIFO_CHUNK_DATARATE }
func (*AntRSSI3Chunk) Tag() uint8     { return FIFO_CHUNK_ANTRSSI3 }
func (c *UnknownChunk) Tag() uint8    { return c.Type }

// Packet is a received packet with the metadata requested in Config.PktStoreFlags.
type Packet struct {
	Data         []byte
	RSSI         int16     // dB
	RFFreqOffset int32     // RF frequency offset
	FreqOffset   int16     // baseband frequency offset
	DataRate     uint32    // datarate offset
	Timer        uint32    // timer value at packet start
	At           time.Time // time the packet was completed
}

// TxSegment is the FIFO content written between two commits. Room is the number of free
// FIFO bytes needed before the segment is written.
type TxSegment struct {
	Data []byte
	Room int
}

// EncodeTx splits payload into the FIFO chunks that transmit it as one packet, preceded by
// the preamble for mod's framing.
func EncodeTx(mod *Modulation, payload []byte) []TxSegment {
	hdlc := mod.framingMode() == FRAMING_MODE_HDLC
	n := len(payload)

	// the remainder goes first so every later chunk is full
	first := n % txChunkSize
	if first == 0 && n > 0 {
		first = txChunkSize
	}
	var end uint8
	if n <= txChunkSize {
		end = FIFO_TXDATA_PKTEND
	}

	seg := make([]byte, 0, first+16)
	const preambleFlags = FIFO_TXDATA_UNENC | FIFO_TXDATA_RAW | FIFO_TXDATA_NOCRC
	if hdlc {
		seg = append(seg, FIFO_CHUNK_REPEATDATA, preambleFlags, 9, 0x7E)
	} else {
		seg = append(seg, FIFO_CHUNK_REPEATDATA, preambleFlags, 4, 0xAA)
		// sync word
		seg = append(seg, FIFO_CHUNK_DATA, 4+1, FIFO_TXDATA_RAW|FIFO_TXDATA_NOCRC, 0x33, 0x55, 0x33, 0x55)
	}

	if hdlc || mod.FixedLength != 0 || n >= 255 {
		seg = append(seg, FIFO_CHUNK_DATA, byte(first+1), FIFO_TXDATA_PKTSTART|end)
	} else {
		// length byte counts itself
		seg = append(seg, FIFO_CHUNK_DATA, byte(1+first+1), FIFO_TXDATA_PKTSTART|end, byte(n+1))
	}
	seg = append(seg, payload[:first]...)
	out := []TxSegment{{Data: seg, Room: first + 20}}

	for rest := payload[first:]; len(rest) > 0; {
		size := txChunkSize
		if len(rest) > txChunkSize {
			end = 0
		} else {
			size = len(rest)
			end = FIFO_TXDATA_PKTEND
		}
		seg := make([]byte, 0, size+3)
		seg = append(seg, FIFO_CHUNK_DATA, byte(size+1), end)
		seg = append(seg, rest[:size]...)
		out = append(out, TxSegment{Data: seg, Room: size + 10})
		rest = rest[size:]
	}
	return out
}

// zerosSegment is 1000 bit times of zeros.
var zerosSegment = TxSegment{
	Data: []byte{FIFO_CHUNK_REPEATDATA, FIFO_TXDATA_NOCRC, 125, 0x00},
	Room: 4,
}

func (r *Radio) fifoClear() {
	r.writeReg(REG_FIFOSTAT, FIFOCMD_CLEAR_DATA_AND_FLAGS)
}

func (r *Radio) fifoCommit() {
	r.writeReg(REG_FIFOSTAT, FIFOCMD_COMMIT)
}

// fifoWrite waits for room in the FIFO, writes seg and commits it.
func (r *Radio) fifoWrite(ctx context.Context, seg TxSegment) error {
	limit := uint16(fifoSize - seg.Room)
	err := r.waitFor(ctx, "fifo space", func() bool {
		return r.readReg16(REG_FIFOCOUNT) <= limit
	})
	if err != nil {
		return err
	}
	r.writeFIFO(seg.Data)
	r.fifoCommit()
	return r.takeErr()
}

func (r *Radio) fifoTxData(ctx context.Context, mod *Modulation, payload []byte) error {
	for _, seg := range EncodeTx(mod, payload) {
		if err := r.fifoWrite(ctx, seg); err != nil {
			return fmt.Errorf("ax5043: fifo write: %w", err)
		}
	}
	return nil
}

// readChunk reads the next chunk from the FIFO and returns it with the number of FIFO bytes
// it occupied after the tag. It returns a nil chunk when the FIFO is empty.
func (r *Radio) readChunk() (Chunk, int, error) {
	if count := r.readReg16(REG_FIFOCOUNT); count == 0 {
		return nil, 0, r.takeErr()
	}
	tag := r.readReg(REG_FIFODATA)

	var c Chunk
	var n int
	var buf [3]byte
	switch tag {
	case FIFO_CHUNK_DATA:
		r.readFIFO(buf[:2])
		length := 0
		if buf[0] > 0 {
			length = int(buf[0]) - 1 // length byte counts the flags
		}
		data := make([]byte, length)
		if length > 0 {
			r.readFIFO(data)
		}
		c, n = &DataChunk{Flags: buf[1], Data: data}, 2+length
	case FIFO_CHUNK_RSSI:
		// the chip reports RSSI as a signed byte
		c, n = &RSSIChunk{RSSI: int16(int8(r.readReg(REG_FIFODATA)))}, 1
	case FIFO_CHUNK_FREQOFFS:
		r.readFIFO(buf[:2])
		c, n = &FreqOffsetChunk{Offset: int16(uint16(buf[0])<<8 | uint16(buf[1]))}, 2
	case FIFO_CHUNK_ANTRSSI2:
		r.readFIFO(buf[:2])
		c, n = &AntRSSI2Chunk{RSSI: buf[0], BgndNoise: buf[1]}, 2
	case FIFO_CHUNK_TIMER:
		c, n = &TimerChunk{Timer: r.readFIFO24()}, 3
	case FIFO_CHUNK_RFFREQOFFS:
		v := r.readFIFO24()
		if v&0x800000 != 0 {
			v |= 0xFF000000
		}
		c, n = &RFFreqOffsetChunk{Offset: int32(v)}, 3
	case FIFO_CHUNK_DATARATE:
		c, n = &DataRateChunk{DataRate: r.readFIFO24()}, 3
	case FIFO_CHUNK_ANTRSSI3:
		r.readFIFO(buf[:3])
		c, n = &AntRSSI3Chunk{Ant0RSSI: buf[0], Ant1RSSI: buf[1], BgndNoise: buf[2]}, 3
	default:
		u := &UnknownChunk{Type: tag}
		switch size := int(tag >> 5); size {
		case 0, 1, 2, 3:
			u.Data = make([]byte, size)
		case 7:
			u.Data = make([]byte, r.readReg(REG_FIFODATA))
			n++
		}
		if len(u.Data) > 0 {
			r.readFIFO(u.Data)
		}
		c, n = u, n+len(u.Data)
	}
	if err := r.takeErr(); err != nil {
		return nil, 0, err
	}
	return c, n, nil
}

func (r *Radio) readFIFO24() uint32 {
	var buf [3]byte
	r.readFIFO(buf[:])
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
}

// rxAssembly is the packet being assembled from the receive FIFO. It survives between
// ReceivePacket calls so chunks read before the FIFO drained are not lost.
type rxAssembly struct {
	pkt     Packet
	have    uint8 // parts received, PKT_STORE_* bits plus pktPartData
	started bool  // a DATA chunk with PKTSTART has been seen
}

// ReceivePacket assembles the next packet from the FIFO. It returns nil without an error when
// no packet has started; metadata chunks read so far are kept for the next call. Once a packet
// has started it waits for the rest of the packet and for every metadata chunk selected in
// Config.PktStoreFlags.
func (r *Radio) ReceivePacket(ctx context.Context) (*Packet, error) {
	r.Lock()
	defer r.Unlock()

	want := r.cfg.PktStoreFlags&0x1E | pktPartData
	a := &r.rx

	for {
		chunk, _, err := r.readChunk()
		if err != nil {
			r.rx = rxAssembly{}
			return nil, fmt.Errorf("ax5043: receive: %w", err)
		}
		if chunk == nil {
			if !a.started {
				return nil, nil
			}
			err := r.waitFor(ctx, "packet continuation", func() bool {
				return r.readReg16(REG_FIFOCOUNT) != 0
			})
			if err != nil {
				return nil, fmt.Errorf("ax5043: receive: %w", err)
			}
			continue
		}

		switch c := chunk.(type) {
		case *DataChunk:
			r.log("data chunk flags %#02x length %d", c.Flags, len(c.Data))
			if !a.started && c.Flags&FIFO_RXDATA_PKTSTART == 0 {
				// not the start of a packet, discard
				break
			}
			a.started = true
			if len(a.pkt.Data)+len(c.Data) > MaxPacketLength {
				r.rx = rxAssembly{}
				return nil, ErrPacketSize
			}
			a.pkt.Data = append(a.pkt.Data, c.Data...)
			if c.Flags&FIFO_RXDATA_PKTEND != 0 {
				a.have |= pktPartData
			}
		case *RSSIChunk:
			r.log("rssi %d dB", c.RSSI)
			a.pkt.RSSI = c.RSSI
			a.have |= PKT_STORE_RSSI
		case *RFFreqOffsetChunk:
			r.log("rf offset %d", c.Offset)
			a.pkt.RFFreqOffset = c.Offset
			a.have |= PKT_STORE_RF_OFFSET
		case *FreqOffsetChunk:
			a.pkt.FreqOffset = c.Offset
			a.have |= PKT_STORE_FREQUENCY_OFFSET
		case *DataRateChunk:
			a.pkt.DataRate = c.DataRate
			a.have |= PKT_STORE_DATARATE_OFFSET
		case *TimerChunk:
			a.pkt.Timer = c.Timer
		default:
			r.log("some other chunk type %#02x", chunk.Tag())
		}

		if a.have&want == want {
			pkt := a.pkt
			pkt.At = time.Now()
			r.rx = rxAssembly{}
			return &pkt, nil
		}
	}
}
