package notification

import "context"

// Recorder persists forwarding attempts.
// Defined in the domain layer, implemented in the infrastructure layer.
type Recorder interface {
	Record(ctx context.Context, d Dispatch) error
}
