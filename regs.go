// Copyright 2022 by Dan Crank, danno@danno.org

package ax5043

// Register addresses carry their width in their type so that a 16-bit register cannot be
// written with an 8-bit value by accident. Addresses above 0x70 need the two-byte long access
// header on the bus, see SPIBus.
type (
	Reg8  uint16
	Reg16 uint16
	Reg24 uint16
	Reg32 uint16
)

// longAccessThreshold is the highest address reachable with a one-byte header.
const longAccessThreshold = 0x70

// Long reports whether the register needs a long (two-byte header) access.
func (r Reg8) Long() bool { return r > longAccessThreshold }
func (r Reg16) Long() bool { return r > longAccessThreshold }
func (r Reg24) Long() bool { return r > longAccessThreshold }
func (r Reg32) Long() bool { return r > longAccessThreshold }

// Revision, power and status.
const (
	REG_SILICONREVISION Reg8  = 0x000
	REG_SCRATCH         Reg8  = 0x001
	REG_PWRMODE         Reg8  = 0x002
	REG_POWSTAT         Reg8  = 0x003
	REG_POWSTICKYSTAT   Reg8  = 0x004
	REG_MODULATION      Reg8  = 0x010
	REG_ENCODING        Reg8  = 0x011
	REG_FRAMING         Reg8  = 0x012
	REG_CRCINIT         Reg32 = 0x014
	REG_FEC             Reg8  = 0x018
	REG_FECSYNC         Reg8  = 0x019
	REG_FECSTATUS       Reg8  = 0x01A
	REG_RADIOSTATE      Reg8  = 0x01C
	REG_XTALSTATUS      Reg8  = 0x01D
)

// Pin configuration.
const (
	REG_PINSTATE      Reg8 = 0x020
	REG_PINFUNCSYSCLK Reg8 = 0x021
	REG_PINFUNCDCLK   Reg8 = 0x022
	REG_PINFUNCDATA   Reg8 = 0x023
	REG_PINFUNCIRQ    Reg8 = 0x024
	REG_PINFUNCANTSEL Reg8 = 0x025
	REG_PINFUNCPWRAMP Reg8 = 0x026
)

// FIFO.
const (
	REG_FIFOSTAT   Reg8  = 0x028
	REG_FIFODATA   Reg8  = 0x029
	REG_FIFOCOUNT  Reg16 = 0x02A
	REG_FIFOFREE   Reg16 = 0x02C
	REG_FIFOTHRESH Reg16 = 0x02E
)

// Synthesiser.
const (
	REG_PLLLOOP      Reg8  = 0x030
	REG_PLLCPI       Reg8  = 0x031
	REG_PLLVCODIV    Reg8  = 0x032
	REG_PLLRANGINGA  Reg8  = 0x033
	REG_FREQA        Reg32 = 0x034
	REG_PLLLOOPBOOST Reg8  = 0x038
	REG_PLLCPIBOOST  Reg8  = 0x039
	REG_PLLRANGINGB  Reg8  = 0x03B
	REG_FREQB        Reg32 = 0x03C
)

// Signal strength, tracking and wakeup timer.
const (
	REG_RSSI          Reg8  = 0x040
	REG_BGNDRSSI      Reg8  = 0x041
	REG_TRKRFFREQ     Reg24 = 0x04D
	REG_WAKEUPTIMER   Reg16 = 0x068
	REG_WAKEUP        Reg16 = 0x06A
	REG_WAKEUPFREQ    Reg16 = 0x06C
	REG_WAKEUPXOEARLY Reg8  = 0x06E
)

// Receiver.
const (
	REG_IFFREQ        Reg16 = 0x100
	REG_DECIMATION    Reg8  = 0x102
	REG_RXDATARATE    Reg24 = 0x103
	REG_MAXDROFFSET   Reg24 = 0x106
	REG_MAXRFOFFSET   Reg24 = 0x109
	REG_FSKDMAX       Reg16 = 0x10C
	REG_FSKDMIN       Reg16 = 0x10E
	REG_AFSKSPACE     Reg16 = 0x110
	REG_AFSKMARK      Reg16 = 0x112
	REG_AFSKCTRL      Reg8  = 0x114
	REG_AMPLFILTER    Reg8  = 0x115
	REG_FREQUENCYLEAK Reg8  = 0x116
	REG_RXPARAMSETS   Reg8  = 0x117
	REG_RXPARAMCURSET Reg8  = 0x118
)

// ParamSet is the base address of one of the four receiver parameter sets.
type ParamSet uint16

const (
	REG_RX_PARAMETER0 ParamSet = 0x120
	REG_RX_PARAMETER1 ParamSet = 0x130
	REG_RX_PARAMETER2 ParamSet = 0x140
	REG_RX_PARAMETER3 ParamSet = 0x150
)

// Offsets of the registers inside a receiver parameter set.
const (
	rxAGCGain       = 0x0
	rxAGCTarget     = 0x1
	rxAGCAHyst      = 0x2
	rxAGCMinMax     = 0x3
	rxTimeGain      = 0x4
	rxDRGain        = 0x5
	rxPhaseGain     = 0x6
	rxFreqGainA     = 0x7
	rxFreqGainB     = 0x8
	rxFreqGainC     = 0x9
	rxFreqGainD     = 0xA
	rxAmplitudeGain = 0xB
	rxFreqDev       = 0xC
	rxFourFSK       = 0xE
	rxBBOffsRes     = 0xF
)

func (p ParamSet) reg8(off uint16) Reg8 { return Reg8(uint16(p) + off) }
func (p ParamSet) reg16(off uint16) Reg16 { return Reg16(uint16(p) + off) }

// Transmitter.
const (
	REG_MODCFGF     Reg8  = 0x160
	REG_FSKDEV      Reg24 = 0x161
	REG_MODCFGA     Reg8  = 0x164
	REG_TXRATE      Reg24 = 0x165
	REG_TXPWRCOEFFA Reg16 = 0x168
	REG_TXPWRCOEFFB Reg16 = 0x16A
)

// PLL, crystal and baseband.
const (
	REG_PLLVCOI    Reg8 = 0x180
	REG_PLLVCOIR   Reg8 = 0x181
	REG_PLLLOCKDET Reg8 = 0x182
	REG_PLLRNGCLK  Reg8 = 0x183
	REG_XTALCAP    Reg8 = 0x184
	REG_BBTUNE     Reg8 = 0x188
	REG_BBOFFSCAP  Reg8 = 0x189
)

// Packet format and pattern match.
const (
	REG_PKTADDRCFG   Reg8  = 0x200
	REG_PKTLENCFG    Reg8  = 0x201
	REG_PKTLENOFFSET Reg8  = 0x202
	REG_PKTMAXLEN    Reg8  = 0x203
	REG_PKTADDR      Reg32 = 0x204
	REG_PKTADDRMASK  Reg32 = 0x208
	REG_MATCH0PAT    Reg32 = 0x210
	REG_MATCH0LEN    Reg8  = 0x214
	REG_MATCH0MIN    Reg8  = 0x215
	REG_MATCH0MAX    Reg8  = 0x216
	REG_MATCH1PAT    Reg16 = 0x218
	REG_MATCH1LEN    Reg8  = 0x21C
	REG_MATCH1MIN    Reg8  = 0x21D
	REG_MATCH1MAX    Reg8  = 0x21E
)

// Packet controller.
const (
	REG_TMGTXBOOST     Reg8 = 0x220
	REG_TMGTXSETTLE    Reg8 = 0x221
	REG_TMGRXBOOST     Reg8 = 0x223
	REG_TMGRXSETTLE    Reg8 = 0x224
	REG_TMGRXOFFSACQ   Reg8 = 0x225
	REG_TMGRXCOARSEAGC Reg8 = 0x226
	REG_TMGRXAGC       Reg8 = 0x227
	REG_TMGRXRSSI      Reg8 = 0x228
	REG_TMGRXPREAMBLE1 Reg8 = 0x229
	REG_TMGRXPREAMBLE2 Reg8 = 0x22A
	REG_TMGRXPREAMBLE3 Reg8 = 0x22B
	REG_RSSIREFERENCE  Reg8 = 0x22C
	REG_RSSIABSTHR     Reg8 = 0x22D
	REG_BGNDRSSIGAIN   Reg8 = 0x22E
	REG_BGNDRSSITHR    Reg8 = 0x22F
	REG_PKTCHUNKSIZE   Reg8 = 0x230
	REG_PKTMISCFLAGS   Reg8 = 0x231
	REG_PKTSTOREFLAGS  Reg8 = 0x232
	REG_PKTACCEPTFLAGS Reg8 = 0x233
)

// Low power oscillator and DAC.
const (
	REG_LPOSCCONFIG Reg8  = 0x310
	REG_LPOSCSTATUS Reg8  = 0x311
	REG_LPOSCKFILT  Reg16 = 0x312
	REG_LPOSCREF    Reg16 = 0x314
	REG_LPOSCFREQ   Reg16 = 0x316
	REG_LPOSCPER    Reg16 = 0x318
	REG_DACVALUE    Reg16 = 0x330
	REG_DACCONFIG   Reg8  = 0x332
)

// Performance tuning. Most of these are undocumented beyond the values the datasheet asks for.
const (
	REG_TUNE_F00 Reg8 = 0xF00
	REG_REF      Reg8 = 0xF0D
	REG_XTALOSC  Reg8 = 0xF10
	REG_XTALAMPL Reg8 = 0xF11
	REG_TUNE_F18 Reg8 = 0xF18
	REG_TUNE_F1C Reg8 = 0xF1C
	REG_TUNE_F21 Reg8 = 0xF21
	REG_TUNE_F22 Reg8 = 0xF22
	REG_TUNE_F23 Reg8 = 0xF23
	REG_TUNE_F26 Reg8 = 0xF26
	REG_TUNE_F34 Reg8 = 0xF34
	REG_TUNE_F35 Reg8 = 0xF35
	REG_TUNE_F44 Reg8 = 0xF44
	REG_TUNE_F72 Reg8 = 0xF72
)

// Chip identification values.
const (
	SCRATCH_VALUE         = 0xC5
	SILICONREVISION_VALUE = 0x51
)

// PWRMODE, POWSTAT, XTALSTATUS
const (
	PWRMODE_RST        = 0x80
	PWRMODE_REFEN_XOEN = 0x60
	POWSTAT_SVMODEM    = 1 << 3
	XTALSTATUS_XTALRUN = 1 << 0
)

// RADIOSTATE
const (
	RADIOSTATE_IDLE            = 0
	RADIOSTATE_POWERDOWN       = 1
	RADIOSTATE_TX_PLL_SETTLING = 4
	RADIOSTATE_TX              = 6
	RADIOSTATE_TX_TAIL         = 7
	RADIOSTATE_RX_PLL_SETTLING = 8
	RADIOSTATE_RX              = 15
)

// PLLRANGING, PLLLOOP, PLLVCODIV, PLLVCOI, PLLRNGCLK
const (
	PLLRANGING_RNG_START = 0x10
	PLLRANGING_RNGERR    = 0x20
	PLLRANGING_PLL_LOCK  = 0x40

	PLLLOOP_FILTER_DIRECT = 0x08
	PLLLOOP_BW_100_KHZ    = 0x01
	PLLLOOP_BW_200_KHZ    = 0x02
	PLLLOOP_BW_500_KHZ    = 0x03

	PLLVCODIV_RF_DIV_TWO                = 0x04
	PLLVCODIV_INTERNAL_VCO              = 0x00
	PLLVCODIV_INTERNAL_VCO_EXT_INDUCTOR = 0x30
	PLLVCODIV_EXTERNAL_VCO              = 0x10

	PLLVCOI_ENABLE_MANUAL = 0x80

	PLLRNGCLK_DIV_2048 = 3
)

// MODULATION
const (
	MODULATION_ASK          = 0x0
	MODULATION_ASK_COHERENT = 0x1
	MODULATION_PSK          = 0x4
	MODULATION_CW           = 0x5
	MODULATION_OQSK         = 0x6
	MODULATION_MSK          = 0x7
	MODULATION_FSK          = 0x8
	MODULATION_4FSK         = 0x9
	MODULATION_AFSK         = 0xA
	MODULATION_FM           = 0xB
)

// ENCODING
const (
	ENC_NRZ   = 0x0
	ENC_INV   = 0x1
	ENC_DIFF  = 0x2
	ENC_SCRAM = 0x4
	ENC_MANCH = 0x8
	ENC_NRZI  = ENC_INV | ENC_DIFF
)

// FRAMING
const (
	FRAMING_MODE_MASK          = 0x0E
	FRAMING_MODE_RAW           = 0x00
	FRAMING_MODE_RAW_SOFT_BITS = 0x02
	FRAMING_MODE_HDLC          = 0x04
	FRAMING_MODE_PATTERN_MATCH = 0x06
	FRAMING_MODE_WMBUS         = 0x08
	FRAMING_CRCMODE_OFF        = 0x00
	FRAMING_CRCMODE_CCITT      = 0x10
	FRAMING_CRCMODE_CRC16      = 0x20
	FRAMING_CRCMODE_DNP        = 0x30
	FRAMING_CRCMODE_CRC32      = 0x40
)

// FEC
const (
	FEC_ENA = 0x01
	FEC_POS = 0x10
)

// MODCFGF, MODCFGA
const (
	MODCFGF_UNSHAPED        = 0x0
	MODCFGF_GAUSSIAN_BT_0_3 = 0x2
	MODCFGF_GAUSSIAN_BT_0_5 = 0x3

	MODCFGA_TXDIFF                  = 0x01
	MODCFGA_TXSE                    = 0x02
	MODCFGA_AMPLSHAPE_RAISED_COSINE = 0x04
)

// AMPLITUDEGAIN
const (
	AMPLGAIN_TRY_TO_CORRECT_ON_AGC_JUMP = 0x40
	AMPLGAIN_RECOVERY_AVERAGING         = 0x80
	AMPLGAIN_RECOVERY_PEAKDET           = 0x00
)

// MAXRFOFFSET
const MAXRFOFFSET_FREQOFFSCORR_FIRST_LO = 1 << 23

// PKTCHUNKSIZE, PKTMISCFLAGS
const (
	PKT_MAXIMUM_CHUNK_SIZE_240_BYTES  = 0xC
	PKT_FLAGS_RSSI_UNITS_MICROSECONDS = 0x00
	PKT_FLAGS_RSSI_UNITS_BIT_TIME     = 0x01
)

// PKTSTOREFLAGS
const (
	PKT_STORE_TIMER            = 0x01
	PKT_STORE_FREQUENCY_OFFSET = 0x02
	PKT_STORE_RF_OFFSET        = 0x04
	PKT_STORE_DATARATE_OFFSET  = 0x08
	PKT_STORE_RSSI             = 0x10
	PKT_STORE_CRC_BYTES        = 0x20
	PKT_STORE_ANT_RSSI         = 0x40
)

// PKTACCEPTFLAGS
const (
	PKT_ACCEPT_RESIDUE          = 0x01
	PKT_ACCEPT_ABORTED          = 0x02
	PKT_ACCEPT_CRC_FAILURES     = 0x04
	PKT_ACCEPT_ADDRESS_FAILURES = 0x08
	PKT_ACCEPT_SIZE_FAILURES    = 0x10
	PKT_ACCEPT_MULTIPLE_CHUNKS  = 0x20
)

// LPOSCCONFIG
const (
	LPOSC_ENABLE = 0x01
	LPOSC_640_HZ = 0x00
	LPOSC_CALIBF = 0x10
)

// FIFOSTAT commands
const (
	FIFOCMD_CLEAR_DATA_AND_FLAGS = 0x03
	FIFOCMD_COMMIT               = 0x04
)
