package luminance

// Stats counts what a Sampler has done since creation.
type Stats struct {
	// Acquisitions is the number of times a target was acquired.
	Acquisitions uint64

	// Dispatches is the number of kernel dispatches with a readback issued.
	Dispatches uint64

	// Completed is the number of published measurements.
	Completed uint64

	// TransferErrors is the number of readbacks that failed.
	TransferErrors uint64

	// InvalidTargets is the number of results discarded because the
	// target was gone at finalize.
	InvalidTargets uint64

	// Faults is the number of dispatched cycles abandoned on an unexpected
	// error at poll or finalize.
	Faults uint64

	// DeviceErrors is the number of device calls that failed before a
	// readback was issued, or while releasing one. They do not count as
	// discarded cycles.
	DeviceErrors uint64

	// LastLatency is the number of ticks between the most recent dispatch
	// and the poll that retired it.
	LastLatency uint64
}

// Discarded returns the number of dispatched cycles that did not publish.
func (s Stats) Discarded() uint64 {
	return s.TransferErrors + s.InvalidTargets + s.Faults
}
