package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/config"
	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/eeprom"
	"github.com/itohio/gostand/pkg/link"
	"github.com/itohio/gostand/pkg/logging"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		configFlag = flag.String("config", "stand.yaml", "Configuration file path")
		imageFlag  = flag.String("image", "", "Replay curves from an EEPROM image file instead of a serial port")
		listFlag   = flag.Bool("list", false, "List serial ports and exit")
		pointsFlag = flag.Int("points", 0, "Downsample each curve to at most N points (0 = all)")
		idleFlag   = flag.Duration("idle", 5*time.Second, "Stop after no record arrived for this long")
	)
	flag.Parse()

	if *listFlag {
		ports, err := link.Ports()
		if err != nil {
			log.Fatalf("Failed to list ports: %v", err)
		}
		for _, p := range ports {
			fmt.Println(p.Name)
		}
		return
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	dev, closeDev, err := openDevice(cfg, *imageFlag, logger)
	if err != nil {
		logger.Fatal("failed to open device", zap.Error(err))
	}
	defer closeDev()

	if err := dev.Connect(); err != nil {
		logger.Fatal("failed to connect", zap.Error(err))
	}
	defer dev.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	curves := collect(ctx, dev.Records(), *idleFlag)
	if len(curves.segments) == 0 {
		logger.Warn("no curves received")
		return
	}

	if err := writeCSV(os.Stdout, curves, *pointsFlag); err != nil {
		logger.Fatal("failed to write curves", zap.Error(err))
	}
	writeSummaries(os.Stderr, curves, logger)
}

// openDevice returns a serial link to the stand, or a replay of an image when
// image is set.
func openDevice(cfg *config.Config, image string, logger *zap.Logger) (link.Device, func(), error) {
	if image == "" {
		return link.New(cfg.Serial.Port, cfg.Serial.BaudRate, link.DefaultBufferSize, logger), func() {}, nil
	}

	layout, err := curve.ParseLayout(cfg.Store.Layout)
	if err != nil {
		return nil, nil, err
	}
	f, err := eeprom.OpenImage(image, int64(cfg.StoreCapacity()))
	if err != nil {
		return nil, nil, err
	}
	store := curve.New(f, layout, cfg.StoreCapacity(), logger)
	if err := store.LoadDirectory(); err != nil {
		f.Close()
		return nil, nil, err
	}
	return link.NewReplay(store, 0, logger), func() { f.Close() }, nil
}
