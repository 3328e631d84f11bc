// Package macro records key transitions and plays them back.
//
// Recordings are stored as JSON lines, one transition per line, with the
// time in milliseconds since the first transition:
//
//	{"type":"keydown","key":"Control","ctrl":true,"time":0}
//	{"type":"keydown","key":"s","code":83,"ctrl":true,"time":42}
//
// Lines that are empty or start with '#' are ignored when reading.
//
// # Recording
//
// A Recorder captures transitions while it is started. Its Observer can be
// attached to an engine so that every handled transition is recorded:
//
//	rec := macro.NewRecorder()
//	rec.Start()
//	cancel := engine.Observe(rec.Observer())
//	// ...
//	macro.Save(rec.Stop(), "session.jsonl")
//
// # Playback
//
// A Player is an input source. Bind it to an engine and call Play; with
// WithSpeed the original pacing between transitions is kept.
//
// All types in this package are safe for concurrent use.
package macro
