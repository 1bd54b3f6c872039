// Copyright 2022 by Dan Crank, danno@danno.org

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/DanCrank/ax5043"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// openTCXO returns the TCXO switch named in the configuration, or nil when there is none.
func openTCXO(cfg *Config) (ax5043.TCXO, io.Closer, error) {
	switch {
	case cfg.TCXOLine.Pin != "":
		pin := gpioreg.ByName(cfg.TCXOLine.Pin)
		if pin == nil {
			return nil, nil, fmt.Errorf("cannot open pin %s", cfg.TCXOLine.Pin)
		}
		return ax5043.PinTCXO{Pin: pin}, nil, nil
	case cfg.TCXOLine.Chip != "":
		t, err := openLineTCXO(cfg.TCXOLine.Chip, cfg.TCXOLine.Line)
		if err != nil {
			return nil, nil, err
		}
		return t, t, nil
	}
	return nil, nil, nil
}

func run(ctx context.Context, cfg *Config, transmit, debug bool) error {
	if _, err := host.Init(); err != nil {
		return err
	}

	spiPort, err := spireg.Open(cfg.Port)
	if err != nil {
		return err
	}
	defer spiPort.Close()
	bus, err := ax5043.NewSPIBus(spiPort, ax5043.DefaultSPISpeed)
	if err != nil {
		return err
	}

	tcxo, closer, err := openTCXO(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	rc := cfg.radioConfig()
	rc.TCXO = tcxo
	if debug {
		rc.Logger = log.Printf
	}

	log.Printf("Initializing ax5043...")
	t0 := time.Now()
	radio, err := ax5043.New(ctx, bus, rc)
	if err != nil {
		return err
	}
	log.Printf("Ready (%.1fms)", time.Since(t0).Seconds()*1000)
	defer radio.ForceOff()

	mod, err := cfg.modulation()
	if err != nil {
		return err
	}
	if err := radio.DefaultParams(&mod); err != nil {
		return err
	}

	if transmit {
		if err := radio.TxOn(ctx, &mod); err != nil {
			return err
		}
		for i := 1; i <= 20; i++ {
			log.Printf("Sending packet %d ...", i)
			msg := []byte(fmt.Sprintf("\x01Hello %03d", i))
			if err := radio.TxPacket(ctx, &mod, msg); err != nil {
				return err
			}
			time.Sleep(100 * time.Millisecond)
		}
		if err := radio.Off(ctx); err != nil {
			return err
		}
		log.Printf("Bye...")
		return nil
	}

	if err := radio.RxOn(&mod); err != nil {
		return err
	}
	log.Printf("Receiving packets ...")
	for {
		pkt, err := radio.ReceivePacket(ctx)
		if err != nil {
			return err
		}
		if pkt == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		log.Printf("Got len=%d rssi=%ddB rf offset=%d %q",
			len(pkt.Data), pkt.RSSI, pkt.RFFreqOffset, string(pkt.Data))
	}
}

func main() {
	configFile := flag.String("config", "", "YAML configuration file")
	spiPort := flag.String("port", "", "ax5043 SPI port name, overrides the configuration")
	tcxoPin := flag.String("tcxo", "", "TCXO enable pin name, overrides the configuration")
	debug := flag.Bool("debug", false, "enable debug output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [tx]:\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	flag.Parse()

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Exiting due to error: %s\n", err)
		os.Exit(2)
	}
	if *spiPort != "" {
		cfg.Port = *spiPort
	}
	if *tcxoPin != "" {
		cfg.TCXOLine.Pin = *tcxoPin
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	transmit := flag.NArg() > 0 && flag.Arg(0) == "tx"
	if err := run(ctx, cfg, transmit, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "Exiting due to error: %s\n", err)
		os.Exit(2)
	}
}
