package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/kidoman/embd/host/all"
	"go.uber.org/zap"

	"github.com/itohio/gostand/pkg/config"
	"github.com/itohio/gostand/pkg/curve"
	"github.com/itohio/gostand/pkg/link"
	"github.com/itohio/gostand/pkg/logging"
	"github.com/itohio/gostand/pkg/report"
)

func main() {
	var (
		configFlag    = flag.String("config", "stand.yaml", "Configuration file path")
		portFlag      = flag.String("p", "", "Serial port for dumps and telemetry (default stdout)")
		mockFlag      = flag.Bool("mock", false, "Use a simulated load cell and an in-memory curve store")
		listFlag      = flag.Bool("list", false, "List recorded curves and exit")
		dumpFlag      = flag.String("dump", "", "Dump curve N, or \"all\", in the serial record format and exit")
		eraseFlag     = flag.Bool("erase", false, "Erase the most recent curve and exit")
		clearFlag     = flag.Bool("clear", false, "Clear the curve directory and exit")
		selftestFlag  = flag.Bool("selftest", false, "Probe the memory capacity and exit")
		memcheckFlag  = flag.Bool("memcheck", false, "Check every memory byte (slow, destructive if interrupted) and exit")
		calibrateFlag = flag.Float64("calibrate", 0, "Calibrate against a known weight, save the config and exit")
		telemetryFlag = flag.Bool("telemetry", false, "Log averaged thrust while recording")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *mockFlag {
		useMock(cfg)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	layout, err := curve.ParseLayout(cfg.Store.Layout)
	if err != nil {
		logger.Fatal("invalid store layout", zap.Error(err))
	}

	mem, closeMem, err := openMemory(cfg.Store, cfg.StoreCapacity())
	if err != nil {
		logger.Fatal("failed to open curve memory", zap.Error(err))
	}
	defer closeMem()

	store := curve.New(mem, layout, cfg.StoreCapacity(), logger)
	if err := store.LoadDirectory(); err != nil {
		logger.Fatal("failed to load curve directory", zap.Error(err))
	}

	out, closeOut, err := openOutput(*portFlag, cfg.Serial.BaudRate)
	if err != nil {
		logger.Fatal("failed to open output", zap.Error(err))
	}
	defer closeOut()

	switch {
	case *listFlag:
		err = listCurves(out, store)
	case *dumpFlag != "":
		err = dump(out, store, *dumpFlag)
	case *eraseFlag:
		err = eraseLast(out, store)
	case *clearFlag:
		store.ClearDirectory()
		err = store.SaveDirectory()
	case *selftestFlag:
		err = selfTest(out, store)
	case *memcheckFlag:
		err = memCheck(out, store)
	case *calibrateFlag != 0:
		err = calibrate(cfg, *configFlag, *calibrateFlag, logger)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err = run(ctx, cfg, store, out, *telemetryFlag, logger)
	}
	if err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}
}

// useMock switches to the simulated sensor and keeps the store off the I2C
// bus. The scale is taken from the simulator so thrust reads in its units.
func useMock(cfg *config.Config) {
	cfg.Sensor.Backend = "mock"
	if cfg.Store.Backend == "i2c" {
		cfg.Store.Backend = "memory"
	}
	cfg.Acquisition.Scale = cfg.Mock.CountsPerUnit
}

func openOutput(port string, baudRate int) (io.Writer, func(), error) {
	if port == "" {
		return os.Stdout, func() {}, nil
	}
	conn, err := link.Open(port, baudRate)
	if err != nil {
		return nil, nil, err
	}
	return conn, func() { conn.Close() }, nil
}

func listCurves(w io.Writer, store *curve.Store) error {
	size := store.Layout().RecordSize()
	entries := store.Entries()
	for i, e := range entries {
		if _, err := fmt.Fprintf(w, "curve %2d: %v, %d samples\n", i, e, e.Len()/size); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d curves, next address %d of %d\n", len(entries), store.NextAddress(), store.Capacity())
	return err
}

func dump(w io.Writer, store *curve.Store, which string) error {
	if which == "all" {
		return report.WriteAll(w, store)
	}
	index, err := strconv.Atoi(which)
	if err != nil {
		return fmt.Errorf("invalid curve %q: %w", which, err)
	}
	return report.WriteCurve(w, store, index)
}

func eraseLast(w io.Writer, store *curve.Store) error {
	ok, err := store.EraseLast()
	if err != nil {
		return err
	}
	if !ok {
		_, err = fmt.Fprintln(w, "no curve to erase")
		return err
	}
	_, err = fmt.Fprintf(w, "erased, %d curves left\n", len(store.Entries()))
	return err
}

func selfTest(w io.Writer, store *curve.Store) error {
	kbit, err := store.ProbeCapacity()
	if err != nil {
		return err
	}
	if kbit == 0 {
		return errors.New("no memory responded to the capacity probe")
	}
	_, err = fmt.Fprintf(w, "memory capacity %d kbit\n", kbit)
	return err
}

func memCheck(w io.Writer, store *curve.Store) error {
	failed, err := store.CheckMemoryErrors(int64(store.Capacity()))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%d bytes checked, %d errors\n", store.Capacity(), failed)
	return err
}

// calibrate tares the unloaded stand, waits for the known weight to be placed
// and stores the resulting offset and scale in the config file.
func calibrate(cfg *config.Config, path string, known float64, logger *zap.Logger) error {
	sc, closeSensor, err := openScale(cfg, logger)
	if err != nil {
		return err
	}
	defer closeSensor()

	n := cfg.Acquisition.TareSamples
	sc.Tare(n)
	fmt.Fprintf(os.Stderr, "offset %d, place %.3f on the stand and press enter\n", sc.Offset(), known)
	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
		return fmt.Errorf("failed to wait for the weight: %w", err)
	}

	sc.Calibrate(known, n)
	cfg.Acquisition.Offset = sc.Offset()
	cfg.Acquisition.Scale = sc.Scale()
	logger.Info("calibrated",
		zap.Int32("offset", cfg.Acquisition.Offset),
		zap.Float64("scale", cfg.Acquisition.Scale))

	return cfg.Save(path)
}
