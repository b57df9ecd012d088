package dispatch

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-zigbee/internal/capability"
)

// Write is one capability value produced by the dispatcher.
// Value is a float64 for measurements and a bool for switches and alarms.
type Write struct {
	Capability capability.Capability `json:"capability"`
	Value      any                   `json:"value"`
}

// String returns "capability=value".
func (w Write) String() string {
	return fmt.Sprintf("%s=%v", w.Capability, w.Value)
}

// Writer is the host-platform capability write interface.
type Writer interface {
	SetCapabilityValue(ctx context.Context, deviceID string, c capability.Capability, value any) error
}

// WriterFunc adapts a function to Writer.
type WriterFunc func(ctx context.Context, deviceID string, c capability.Capability, value any) error

// SetCapabilityValue calls f.
func (f WriterFunc) SetCapabilityValue(ctx context.Context, deviceID string, c capability.Capability, value any) error {
	return f(ctx, deviceID, c, value)
}
