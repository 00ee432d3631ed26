package utils

import (
	"context"
	"log"
	"math"
	"runtime/debug"

	"stock-insight-agent/pkg/logger"
)

// ToPointer returns a pointer to the given value.
func ToPointer[T any](v T) *T {
	return &v
}

// RoundFloat rounds val to the given number of decimal places.
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// GoSafe runs fn in a goroutine and recovers panics so a worker crash
// cannot take down the process.
func GoSafe(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("recovered from panic: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// ShouldContinue reports whether the context is still alive, logging when
// it is not.
func ShouldContinue(ctx context.Context, log *logger.Logger) bool {
	select {
	case <-ctx.Done():
		log.Warn("Context cancelled, stopping work", logger.ErrorField(ctx.Err()))
		return false
	default:
		return true
	}
}
