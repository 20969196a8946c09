// Package sensor defines an abstract sensing device that can provide measurement readings.
package sensor

import (
	"context"
)

// A Sensor represents a general purpose sensors that can give arbitrary readings
// of some thing that it is sensing.
type Sensor interface {
	// Readings return data specific to the type of sensor and can be of any type.
	Readings(ctx context.Context, extra map[string]interface{}) (map[string]interface{}, error)

	// DoCommand sends and receives arbitrary data for operations that do not fit Readings.
	DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error)

	// Close releases whatever the sensor owns. It never closes a bus handed to it.
	Close(ctx context.Context) error
}
