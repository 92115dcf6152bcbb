package tppty

// ResizeFunc is called with the new (cols, rows) each time a Slave
// observes a resize, in the order resizes occur. Delivery is
// best-effort and not ordered with respect to inbound byte delivery.
type ResizeFunc func(cols, rows int)

// Slave is the controlled-side endpoint of a pseudoterminal, used
// inside the child process.
type Slave interface {
	ByteChannel

	// Size returns the current terminal dimensions (cols, rows).
	Size() (cols, rows int)

	// OnResize subscribes fn to future resize notifications. It
	// returns a function that cancels the subscription.
	OnResize(fn ResizeFunc) (cancel func())
}
