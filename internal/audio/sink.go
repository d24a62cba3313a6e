package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// TargetSampleRate is the rate every artifact is written at. It is the rate
// the transcription engines expect, so nothing downstream ever resamples.
const TargetSampleRate = 16000

// minArtifactBytes guards against zero and near-zero-length captures: a WAV
// header plus under ~60ms of audio is not worth transcribing.
const minArtifactBytes = 2048

// wavSink accumulates quantized mono samples and writes them to a 16kHz
// 16-bit PCM WAV file.
type wavSink struct {
	path   string
	file   *os.File
	enc    *wav.Encoder
	format *goaudio.Format

	samples int64
	closed  bool
}

func newWAVSink(path string) (*wavSink, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create artifact: %w", err)
	}
	return &wavSink{
		path:   path,
		file:   file,
		enc:    wav.NewEncoder(file, TargetSampleRate, 16, 1, 1),
		format: &goaudio.Format{NumChannels: 1, SampleRate: TargetSampleRate},
	}, nil
}

// Write quantizes one chunk of resampled samples and appends it.
func (s *wavSink) Write(chunk []float32) error {
	if len(chunk) == 0 {
		return nil
	}
	data := make([]int, len(chunk))
	for i, v := range chunk {
		data[i] = quantize(v)
	}
	buf := &goaudio.IntBuffer{Format: s.format, Data: data, SourceBitDepth: 16}
	if err := s.enc.Write(buf); err != nil {
		return fmt.Errorf("append samples: %w", err)
	}
	s.samples += int64(len(chunk))
	return nil
}

// Samples reports how many samples have been written so far.
func (s *wavSink) Samples() int64 {
	return s.samples
}

// Finalize flushes the encoder, closes the file, and validates the result.
// The artifact is deleted on any failure.
func (s *wavSink) Finalize() error {
	if err := s.close(); err != nil {
		s.Discard()
		return err
	}

	info, err := os.Stat(s.path)
	if err != nil {
		s.Discard()
		return fmt.Errorf("stat artifact: %w", err)
	}
	if info.Size() < minArtifactBytes {
		s.Discard()
		return fmt.Errorf("capture too short: %d bytes", info.Size())
	}
	return nil
}

// Discard closes and deletes the artifact.
func (s *wavSink) Discard() {
	_ = s.close()
	_ = os.Remove(s.path)
}

func (s *wavSink) close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	encErr := s.enc.Close()
	fileErr := s.file.Close()
	if encErr != nil {
		return fmt.Errorf("finalize artifact: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("close artifact: %w", fileErr)
	}
	return nil
}

// quantize converts a float sample in [-1, 1] to s16 with clamping.
func quantize(v float32) int {
	scaled := int(v * 32767)
	if scaled > 32767 {
		return 32767
	}
	if scaled < -32768 {
		return -32768
	}
	return scaled
}
