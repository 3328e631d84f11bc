package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/tidwall/sjson"

	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/macro"
)

// Replay feeds recorded transitions through the engine and writes one
// JSON outcome per transition to w. The input is in the recording format
// of package macro, for example:
//
//	{"type":"keydown","key":"s","code":83,"ctrl":true,"time":120}
//
// "time" is in milliseconds; transitions without it are stamped by the
// engine clock.
func (a *Application) Replay(ctx context.Context, r io.Reader, w io.Writer) error {
	rd := macro.NewReader(r)
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	var seq int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ev, err := rd.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return &ReplayError{Line: rd.Line(), Err: err}
		}

		out := a.engine.HandleEvent(ev)
		seq++
		rec, err := encodeOutcome(seq, out)
		if err != nil {
			return &ReplayError{Line: rd.Line(), Err: err}
		}
		bw.Write(rec)
		bw.WriteByte('\n')
		if err := bw.Flush(); err != nil {
			return err
		}
	}

	a.log.Debug("replay finished", "transitions", seq)
	return nil
}

// encodeOutcome renders an outcome as one JSON object. In debug mode the
// diagnostic snapshot is attached under "snapshot".
func encodeOutcome(seq int, out input.Outcome) ([]byte, error) {
	fields := []struct {
		path  string
		value any
	}{
		{"seq", seq},
		{"type", out.Type.String()},
		{"key", string(out.Key)},
		{"label", out.Label},
		{"fired", out.Fired.String()},
		{"binding", out.Binding},
		{"action", out.Action},
		{"prevent_default", out.PreventDefault},
		{"stop_propagation", out.StopPropagation},
		{"uncancelable", out.Uncancelable},
	}

	rec := []byte("{}")
	var err error
	for _, f := range fields {
		if rec, err = sjson.SetBytes(rec, f.path, f.value); err != nil {
			return nil, err
		}
	}

	if out.Output == nil {
		return rec, nil
	}
	if rec, err = sjson.SetBytes(rec, "output", out.Output.Text()); err != nil {
		return nil, err
	}
	if snap, ok := out.Output.(*input.Snapshot); ok {
		raw, err := json.Marshal(snap)
		if err != nil {
			return nil, err
		}
		if rec, err = sjson.SetRawBytes(rec, "snapshot", raw); err != nil {
			return nil, err
		}
	}
	return rec, nil
}
