// Package errs collects the sentinel errors returned across the decoder, so
// callers can distinguish failure kinds with errors.Is rather than string
// matching.
package errs

import "errors"

var (
	// ErrHeaderIncomplete is returned when a sub-log's I-frame definition is
	// missing or its encoding/predictor arrays don't match its field count,
	// or no P-frame definition exists at all.
	ErrHeaderIncomplete = errors.New("header incomplete")

	// ErrMissingPredictorInput is returned when a predictor requires a field
	// that hasn't been decoded yet in the current frame, e.g. MOTOR_0 before
	// motor[0].
	ErrMissingPredictorInput = errors.New("missing predictor input")

	// ErrUnknownFrameMarker is returned by codec.DecodeFrame when a field's
	// encoding code is not one it recognizes.
	ErrUnknownFrameMarker = errors.New("unknown frame marker")

	// ErrLogIndexOutOfRange is returned by OpenSubLog for an index outside
	// [0, GetLogCount()).
	ErrLogIndexOutOfRange = errors.New("sub-log index out of range")

	// ErrNoLogOpen is returned by Open when the data holds no sub-log, and
	// by GetFrameAtTime when the open sub-log has no chunks.
	ErrNoLogOpen = errors.New("no sub-log is open")
)
