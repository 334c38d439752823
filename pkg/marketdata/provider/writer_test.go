package provider

import (
	"github.com/rxtech-lab/sma-backtest/internal/types"
)

// recordingWriter keeps written bars in memory.
type recordingWriter struct {
	outputPath    string
	initializeErr error
	writeErr      error
	finalizeErr   error
	closeErr      error

	initialized bool
	closed      bool
	finalized   bool
	bars        []types.MarketData
}

func (w *recordingWriter) Initialize() error {
	if w.initializeErr != nil {
		return w.initializeErr
	}

	w.initialized = true

	return nil
}

func (w *recordingWriter) Write(data types.MarketData) error {
	if w.writeErr != nil {
		return w.writeErr
	}

	w.bars = append(w.bars, data)

	return nil
}

func (w *recordingWriter) Finalize() (string, error) {
	if w.finalizeErr != nil {
		return "", w.finalizeErr
	}

	w.finalized = true

	return w.outputPath, nil
}

func (w *recordingWriter) Close() error {
	w.closed = true

	return w.closeErr
}

func (w *recordingWriter) GetOutputPath() string {
	return w.outputPath
}

type progressCall struct {
	current float64
	total   float64
}

type progressRecorder struct {
	calls []progressCall
}

func (p *progressRecorder) record(current, total float64, _ string) {
	p.calls = append(p.calls, progressCall{current: current, total: total})
}
