// Package oracle supplies external observations that can resolve segments.
// Only a mock feed exists; a real source implements Source.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"fractal-ledger/fault"
	"fractal-ledger/logger"
	"fractal-ledger/models"
)

// Source fetches the latest reading of a named feed
type Source interface {
	Fetch(ctx context.Context, source string) (models.OracleReading, error)
}

// Listener is notified of every reading fetched for its source
type Listener func(models.OracleReading)

// MockFeed answers every source with a fixed price after an optional delay
type MockFeed struct {
	price float64
	delay time.Duration
	now   func() time.Time

	mux       sync.RWMutex
	latest    map[string]models.OracleReading
	listeners map[string][]Listener
}

func NewMockFeed(price float64, delay time.Duration) *MockFeed {
	return &MockFeed{
		price:     price,
		delay:     delay,
		now:       time.Now,
		latest:    make(map[string]models.OracleReading),
		listeners: make(map[string][]Listener),
	}
}

// Fetch waits for the configured delay, records the reading as the latest
// for source and notifies its listeners
func (f *MockFeed) Fetch(ctx context.Context, source string) (models.OracleReading, error) {
	if source == "" {
		return models.OracleReading{}, errors.Wrap(fault.ErrInvalidArgument, "oracle source is required")
	}
	if f.delay > 0 {
		timer := time.NewTimer(f.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return models.OracleReading{}, errors.Wrapf(ctx.Err(), "oracle source: %q", source)
		case <-timer.C:
		}
	}

	reading := models.OracleReading{
		ID:        uuid.New().String(),
		Price:     f.price,
		Timestamp: f.now().UTC(),
		Source:    source,
	}

	f.mux.Lock()
	f.latest[source] = reading
	listeners := append([]Listener(nil), f.listeners[source]...)
	f.mux.Unlock()

	for _, l := range listeners {
		l(reading)
	}
	logger.Logger.Debug("Oracle reading",
		zap.String("source", source), zap.Float64("price", reading.Price))
	return reading, nil
}

// Latest returns the last reading fetched for source
func (f *MockFeed) Latest(source string) (models.OracleReading, bool) {
	f.mux.RLock()
	defer f.mux.RUnlock()
	r, ok := f.latest[source]
	return r, ok
}

// Subscribe registers l for readings of source
func (f *MockFeed) Subscribe(source string, l Listener) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.listeners[source] = append(f.listeners[source], l)
}
