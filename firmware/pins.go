//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// HX711 lines
	PIN_CLOCK = machine.D2 // PD_SCK
	PIN_DATA  = machine.D3 // DOUT

	// Sampling configuration
	SAMPLE_INTERVAL = 12500 * time.Microsecond // 80 SPS part, one conversion per tick
	AGGREGATE_READS = 1                        // Reads per recorded sample
	WARMUP_READS    = 50                       // Discarded reads priming the estimator
	TARE_READS      = 10

	// Calibration, raw counts per thrust unit
	SCALE = 21.5

	// Estimator
	PROCESS_NOISE     = 1
	MEASUREMENT_NOISE = 100
	INITIAL_ERROR     = 1000

	// Recording thresholds in thrust units
	START_THRUST = 10
	END_THRUST   = 1
	END_DELAY    = 500 * time.Millisecond
	MAX_DURATION = 60 * time.Second

	// 24LC512 on the default I2C bus
	EEPROM_ADDRESS   = 0x50
	EEPROM_SIZE_KBIT = 512
	EEPROM_SIZE      = EEPROM_SIZE_KBIT * 128
	I2C_FREQUENCY    = 400 * machine.KHz

	// Serial configuration
	// A dual_pressure record is at most ~70 bytes; dumps are not time critical.
	UART_BAUD_RATE = 38400
)
