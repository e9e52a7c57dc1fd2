// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package edf reads European Data Format (EDF and EDF+) recordings: a
// fixed-layout ASCII header, one sub-header per signal, then interleaved
// data records of 16-bit little-endian samples. Digital values are mapped
// to physical units with the per-signal linear calibration from the header.
package edf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	headerSize       = 256
	signalHeaderSize = 256

	// annotationLabel marks EDF+ annotation signals, which carry text
	// events rather than samples.
	annotationLabel = "EDF Annotations"
)

// Signal describes one channel in the recording.
type Signal struct {
	Label             string
	Transducer        string
	PhysicalDimension string
	PhysicalMin       float64
	PhysicalMax       float64
	DigitalMin        int
	DigitalMax        int
	Prefiltering      string
	SamplesPerRecord  int
}

// SampleRate returns the signal's sample rate in Hz given the record
// duration in seconds.
func (s Signal) SampleRate(recordDuration float64) float64 {
	if recordDuration <= 0 {
		return 0
	}
	return float64(s.SamplesPerRecord) / recordDuration
}

// Annotation reports whether this is an EDF+ annotation signal.
func (s Signal) Annotation() bool {
	return s.Label == annotationLabel
}

// Reader provides access to an open EDF file.
type Reader struct {
	f *os.File

	Version        string
	PatientID      string
	RecordingID    string
	StartTime      time.Time
	DataRecords    int
	RecordDuration float64
	Signals        []Signal

	// dataOffset is the byte position of the first data record.
	dataOffset int64
	// recordSize is the byte length of one data record across all signals.
	recordSize int64
	// signalOffsets holds each signal's byte offset within a record.
	signalOffsets []int64
}

// Open opens an EDF file and parses its headers.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening EDF file: %w", err)
	}
	r := &Reader{f: f}
	if err := r.parseHeader(); err != nil {
		f.Close()
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return r, nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.f.Close()
}

func (r *Reader) parseHeader() error {
	head := make([]byte, headerSize)
	if _, err := io.ReadFull(r.f, head); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	field := func(start, length int) string {
		return strings.TrimSpace(string(head[start : start+length]))
	}

	r.Version = field(0, 8)
	r.PatientID = field(8, 80)
	r.RecordingID = field(88, 80)

	startDate := field(168, 8)
	startTime := field(176, 8)
	if ts, err := time.Parse("02.01.06 15.04.05", startDate+" "+startTime); err == nil {
		r.StartTime = ts
	}

	headerBytes, err := strconv.Atoi(field(184, 8))
	if err != nil {
		return fmt.Errorf("invalid header byte count %q", field(184, 8))
	}

	r.DataRecords, err = strconv.Atoi(field(236, 8))
	if err != nil {
		return fmt.Errorf("invalid data record count %q", field(236, 8))
	}

	r.RecordDuration, err = strconv.ParseFloat(field(244, 8), 64)
	if err != nil {
		return fmt.Errorf("invalid record duration %q", field(244, 8))
	}

	ns, err := strconv.Atoi(field(252, 4))
	if err != nil || ns <= 0 {
		return fmt.Errorf("invalid signal count %q", field(252, 4))
	}

	if want := headerSize + ns*signalHeaderSize; headerBytes != want {
		return fmt.Errorf("header byte count %d does not match %d signals", headerBytes, ns)
	}

	sub := make([]byte, ns*signalHeaderSize)
	if _, err := io.ReadFull(r.f, sub); err != nil {
		return fmt.Errorf("reading signal headers: %w", err)
	}

	// Signal headers store each field for all signals consecutively:
	// ns labels, then ns transducers, and so on.
	subField := func(fieldStart, fieldLen, i int) string {
		off := fieldStart*ns + i*fieldLen
		return strings.TrimSpace(string(sub[off : off+fieldLen]))
	}

	r.Signals = make([]Signal, ns)
	r.signalOffsets = make([]int64, ns)
	var offset int64
	for i := 0; i < ns; i++ {
		sig := Signal{
			Label:             subField(0, 16, i),
			Transducer:        subField(16, 80, i),
			PhysicalDimension: subField(96, 8, i),
			Prefiltering:      subField(120, 80, i),
		}
		if sig.PhysicalMin, err = strconv.ParseFloat(subField(104, 8, i), 64); err != nil {
			return fmt.Errorf("signal %d: invalid physical minimum", i)
		}
		if sig.PhysicalMax, err = strconv.ParseFloat(subField(112, 8, i), 64); err != nil {
			return fmt.Errorf("signal %d: invalid physical maximum", i)
		}
		if sig.DigitalMin, err = strconv.Atoi(subField(200, 8, i)); err != nil {
			return fmt.Errorf("signal %d: invalid digital minimum", i)
		}
		if sig.DigitalMax, err = strconv.Atoi(subField(208, 8, i)); err != nil {
			return fmt.Errorf("signal %d: invalid digital maximum", i)
		}
		if sig.SamplesPerRecord, err = strconv.Atoi(subField(216, 8, i)); err != nil || sig.SamplesPerRecord <= 0 {
			return fmt.Errorf("signal %d: invalid samples per record", i)
		}
		if sig.DigitalMax == sig.DigitalMin {
			return fmt.Errorf("signal %d (%s): degenerate digital range", i, sig.Label)
		}

		r.Signals[i] = sig
		r.signalOffsets[i] = offset
		offset += int64(sig.SamplesPerRecord) * 2
	}
	r.recordSize = offset
	r.dataOffset = int64(headerBytes)

	return nil
}

// Labels returns the labels of all non-annotation signals in file order.
func (r *Reader) Labels() []string {
	var labels []string
	for _, s := range r.Signals {
		if !s.Annotation() {
			labels = append(labels, s.Label)
		}
	}
	return labels
}

// Duration returns the total recording length in seconds.
func (r *Reader) Duration() float64 {
	return float64(r.DataRecords) * r.RecordDuration
}

// ReadSignal reads all samples of signal i across every data record and
// converts them to physical units.
func (r *Reader) ReadSignal(i int) ([]float64, error) {
	if i < 0 || i >= len(r.Signals) {
		return nil, fmt.Errorf("signal index %d out of range [0, %d)", i, len(r.Signals))
	}
	sig := r.Signals[i]
	if sig.Annotation() {
		return nil, fmt.Errorf("signal %d (%s) is an annotation signal", i, sig.Label)
	}

	scale := (sig.PhysicalMax - sig.PhysicalMin) / float64(sig.DigitalMax-sig.DigitalMin)
	if math.IsInf(scale, 0) || math.IsNaN(scale) {
		return nil, fmt.Errorf("signal %d (%s): degenerate calibration", i, sig.Label)
	}

	out := make([]float64, 0, r.DataRecords*sig.SamplesPerRecord)
	buf := make([]byte, sig.SamplesPerRecord*2)

	for rec := 0; rec < r.DataRecords; rec++ {
		pos := r.dataOffset + int64(rec)*r.recordSize + r.signalOffsets[i]
		if _, err := r.f.ReadAt(buf, pos); err != nil {
			return nil, fmt.Errorf("reading record %d of signal %s: %w", rec, sig.Label, err)
		}
		for j := 0; j < sig.SamplesPerRecord; j++ {
			digital := int16(binary.LittleEndian.Uint16(buf[j*2:]))
			out = append(out, (float64(digital)-float64(sig.DigitalMin))*scale+sig.PhysicalMin)
		}
	}
	return out, nil
}
