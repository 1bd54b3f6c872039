// Copyright 2022 by Dan Crank, danno@danno.org

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/DanCrank/ax5043"
	"github.com/warthog618/go-gpiocdev"
	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration of the radio program.
type Config struct {
	Port string `yaml:"port"` // SPI port name

	Xtal struct {
		Freq            uint32 `yaml:"freq"`
		TCXO            bool   `yaml:"tcxo"`
		LoadCapacitance uint16 `yaml:"load_capacitance"`
		ErrorPPM        uint32 `yaml:"error_ppm"`
	} `yaml:"xtal"`

	Frequency  uint32  `yaml:"frequency"`
	Mode       string  `yaml:"mode"`
	Bitrate    uint32  `yaml:"bitrate"`
	Power      float32 `yaml:"power"`
	PowerLimit float32 `yaml:"power_limit"`
	SingleEnd  bool    `yaml:"single_ended"`

	Store struct {
		RSSI       bool `yaml:"rssi"`
		RFOffset   bool `yaml:"rf_offset"`
		FreqOffset bool `yaml:"freq_offset"`
		DataRate   bool `yaml:"datarate"`
	} `yaml:"store"`

	Poll struct {
		Timeout  time.Duration `yaml:"timeout"`
		Interval time.Duration `yaml:"interval"`
	} `yaml:"poll"`

	// TCXO enable line, either a periph pin name or a gpiochip line.
	TCXOLine struct {
		Pin  string `yaml:"pin"`
		Chip string `yaml:"chip"`
		Line int    `yaml:"line"`
	} `yaml:"tcxo_line"`
}

// defaultConfig is a 16.369MHz TCXO board on 434.6MHz using GFSK.
func defaultConfig() *Config {
	c := &Config{
		Port:      "/dev/spidev0.0",
		Frequency: 434600000,
		Mode:      "gfsk",
	}
	c.Xtal.Freq = 16369000
	c.Xtal.TCXO = true
	c.Store.RSSI = true
	c.Store.RFOffset = true
	c.Poll.Timeout = 2 * time.Second
	c.Poll.Interval = time.Millisecond
	return c
}

// loadConfig reads filename over the defaults. An empty filename gives the defaults.
func loadConfig(filename string) (*Config, error) {
	c := defaultConfig()
	if filename == "" {
		return c, nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return c, nil
}

// radioConfig converts the file configuration into the driver's.
func (c *Config) radioConfig() ax5043.Config {
	rc := ax5043.Config{
		XtalFreq:           c.Xtal.Freq,
		ClockSource:        ax5043.ClockCrystal,
		LoadCapacitance:    c.Xtal.LoadCapacitance,
		ErrorPPM:           c.Xtal.ErrorPPM,
		FreqA:              c.Frequency,
		FreqB:              c.Frequency,
		TransmitPowerLimit: c.PowerLimit,
		Poll:               ax5043.Poller{Timeout: c.Poll.Timeout, Interval: c.Poll.Interval},
	}
	if c.Xtal.TCXO {
		rc.ClockSource = ax5043.ClockTCXO
	}
	if c.SingleEnd {
		rc.TxPath = ax5043.TxPathSingleEnded
	}
	if c.Store.RSSI {
		rc.PktStoreFlags |= ax5043.PKT_STORE_RSSI
	}
	if c.Store.RFOffset {
		rc.PktStoreFlags |= ax5043.PKT_STORE_RF_OFFSET
	}
	if c.Store.FreqOffset {
		rc.PktStoreFlags |= ax5043.PKT_STORE_FREQUENCY_OFFSET
	}
	if c.Store.DataRate {
		rc.PktStoreFlags |= ax5043.PKT_STORE_DATARATE_OFFSET
	}
	return rc
}

// modulation looks up the configured mode and applies the overrides.
func (c *Config) modulation() (ax5043.Modulation, error) {
	mk, ok := ax5043.Modes[c.Mode]
	if !ok {
		return ax5043.Modulation{}, fmt.Errorf("unknown mode %q", c.Mode)
	}
	mod := mk()
	if c.Bitrate != 0 {
		mod.Bitrate = c.Bitrate
	}
	if c.Power != 0 {
		mod.Power = c.Power
	}
	return mod, nil
}

// lineTCXO switches the TCXO through a GPIO character device line.
type lineTCXO struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func openLineTCXO(chipPath string, offset int) (*lineTCXO, error) {
	chip, err := gpiocdev.NewChip(chipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPIO chip %s: %w", chipPath, err)
	}
	line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("ax5043-tcxo"))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("failed to request TCXO line %d: %w", offset, err)
	}
	return &lineTCXO{chip: chip, line: line}, nil
}

func (t *lineTCXO) Enable() error  { return t.line.SetValue(1) }
func (t *lineTCXO) Disable() error { return t.line.SetValue(0) }

func (t *lineTCXO) Close() error {
	t.line.Close()
	return t.chip.Close()
}
