// Package scale turns raw load cell conversions into calibrated values. It
// runs every read through the recursive estimator, reduces repeated reads
// with the selected aggregation mode and applies tare and scale.
package scale

import (
	"fmt"
	"strings"

	"github.com/itohio/gostand/pkg/filter"
)

// Source produces raw signed conversions. *hx711.Reader implements it.
type Source interface {
	Read() int32
}

// Mode selects how repeated reads are reduced to one value.
type Mode int

const (
	ModeAverage Mode = iota // mean of n reads (default)
	ModeRaw                 // single read
	ModeMedian              // median of n reads
	ModeMedAvg              // mean of the middle half of n sorted reads
	ModeRunAvg              // exponential running average over n reads
)

var modeNames = map[Mode]string{
	ModeAverage: "average",
	ModeRaw:     "raw",
	ModeMedian:  "median",
	ModeMedAvg:  "medavg",
	ModeRunAvg:  "runavg",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps a mode name to a Mode.
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for m, n := range modeNames {
		if n == name {
			return m, nil
		}
	}
	return ModeAverage, fmt.Errorf("unknown aggregation mode %q", name)
}

// DefaultAlpha is the running average smoothing factor used by Value.
const DefaultAlpha = 0.5

// Scale owns the estimator and calibration state of one load cell.
//
// A Scale is not safe for concurrent use; one goroutine owns it.
type Scale struct {
	src    Source
	kalman *filter.Kalman

	mode  Mode
	alpha float64

	offset   int32
	scaleInv float64

	lastRaw      float64
	lastEstimate float64
	lastFiltered float64 // mean of the estimates of the last ReadAverage
}

// New creates a Scale reading from src. kalman may be shared with nothing
// else; it is updated on every read.
func New(src Source, kalman *filter.Kalman) *Scale {
	return &Scale{
		src:      src,
		kalman:   kalman,
		mode:     ModeAverage,
		alpha:    DefaultAlpha,
		scaleInv: 1,
	}
}

// Begin primes the estimator with warmup discarded reads so its error
// covariance has settled before values are reported.
func (s *Scale) Begin(warmup int) {
	for range warmup {
		s.read()
	}
}

// read performs one raw conversion and feeds it to the estimator.
func (s *Scale) read() float64 {
	s.lastRaw = float64(s.src.Read())
	s.lastEstimate = s.kalman.Update(s.lastRaw)
	return s.lastRaw
}

// Read performs a single raw read.
func (s *Scale) Read() float64 {
	return s.read()
}

// ReadFiltered performs a single read and returns the estimator output.
func (s *Scale) ReadFiltered() float64 {
	s.read()
	return s.lastEstimate
}

// LastRaw returns the most recent raw read.
func (s *Scale) LastRaw() float64 {
	return s.lastRaw
}

// ReadAverage returns the mean of n raw reads (n >= 1) and caches the mean
// of the matching estimator outputs for FilteredUnits.
func (s *Scale) ReadAverage(n int) float64 {
	n = max(n, 1)
	var sum, sumEstimates float64
	for range n {
		sum += s.read()
		sumEstimates += s.lastEstimate
	}
	s.lastFiltered = sumEstimates / float64(n)
	return sum / float64(n)
}

// collect fills buf with n reads, n clamped to the sort bounds.
func (s *Scale) collect(buf *[MaxSortSamples]float64, n int) []float64 {
	xs := buf[:clampSort(n)]
	for i := range xs {
		xs[i] = s.read()
	}
	return xs
}

// ReadMedian returns the median of n reads, n clamped to [3, 15].
func (s *Scale) ReadMedian(n int) float64 {
	var buf [MaxSortSamples]float64
	xs := s.collect(&buf, n)
	InsertionSort(xs)
	return Median(xs)
}

// ReadMedAvg returns the trimmed mean of n reads, n clamped to [3, 15].
func (s *Scale) ReadMedAvg(n int) float64 {
	var buf [MaxSortSamples]float64
	xs := s.collect(&buf, n)
	InsertionSort(xs)
	return TrimmedMean(xs)
}

// ReadRunAvg exponentially smooths n reads (n >= 1) with alpha clamped to
// [0, 1].
func (s *Scale) ReadRunAvg(n int, alpha float64) float64 {
	n = max(n, 1)
	alpha = min(max(alpha, 0), 1)
	v := s.read()
	for i := 1; i < n; i++ {
		v += alpha * (s.read() - v)
	}
	return v
}

// Mode returns the active aggregation mode.
func (s *Scale) Mode() Mode {
	return s.mode
}

// SetMode selects the aggregation mode used by Value and Units.
func (s *Scale) SetMode(m Mode) {
	s.mode = m
}

// SetAlpha sets the smoothing factor of ModeRunAvg, clamped to [0, 1].
func (s *Scale) SetAlpha(alpha float64) {
	s.alpha = min(max(alpha, 0), 1)
}

// Aggregate returns the raw aggregate of n reads in the active mode.
func (s *Scale) Aggregate(n int) float64 {
	switch s.mode {
	case ModeRaw:
		return s.read()
	case ModeMedian:
		return s.ReadMedian(n)
	case ModeMedAvg:
		return s.ReadMedAvg(n)
	case ModeRunAvg:
		return s.ReadRunAvg(n, s.alpha)
	default:
		return s.ReadAverage(n)
	}
}

// Value returns the aggregate of n reads minus the tare offset.
func (s *Scale) Value(n int) float64 {
	return s.Aggregate(n) - float64(s.offset)
}

// Units returns the aggregate of n reads in calibrated units.
func (s *Scale) Units(n int) float64 {
	return s.Value(n) * s.scaleInv
}

// ToUnits converts a raw aggregate to calibrated units.
func (s *Scale) ToUnits(aggregate float64) float64 {
	return (aggregate - float64(s.offset)) * s.scaleInv
}

// FilteredUnits converts the estimator mean cached by the last ReadAverage,
// whichever mode is active.
func (s *Scale) FilteredUnits() float64 {
	return s.ToUnits(s.lastFiltered)
}

// Tare sets the zero offset to the average of n reads.
func (s *Scale) Tare(n int) {
	s.offset = int32(s.ReadAverage(n))
}

// TareSet reports whether a non-zero offset is in place.
func (s *Scale) TareSet() bool {
	return s.offset != 0
}

// TareUnits returns the offset expressed in calibrated units.
func (s *Scale) TareUnits() float64 {
	return -float64(s.offset) * s.scaleInv
}

// SetOffset sets the zero offset in raw counts.
func (s *Scale) SetOffset(offset int32) {
	s.offset = offset
}

// Offset returns the zero offset in raw counts.
func (s *Scale) Offset() int32 {
	return s.offset
}

// SetScale sets the raw counts per unit. A zero scale is rejected and the
// previous calibration kept.
func (s *Scale) SetScale(scale float64) bool {
	if scale == 0 {
		return false
	}
	s.scaleInv = 1 / scale
	return true
}

// Scale returns the raw counts per unit.
func (s *Scale) Scale() float64 {
	return 1 / s.scaleInv
}

// Calibrate derives the scale from n reads of a known weight. Tare must have
// been performed first; a reading equal to the offset yields an infinite
// scale factor.
func (s *Scale) Calibrate(knownWeight float64, n int) {
	s.scaleInv = knownWeight / (s.ReadAverage(n) - float64(s.offset))
}
