package macro

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/silverkey/internal/input/key"
)

// MaxLineSize bounds a single recorded transition.
const MaxLineSize = 64 * 1024

// Decoding errors.
var (
	ErrInvalidJSON = errors.New("invalid JSON")
	ErrNotObject   = errors.New("not a JSON object")
	ErrEventType   = errors.New("missing or unknown event type")
	ErrInvalidTime = errors.New("invalid time")
)

// Encode renders ev as one JSON object. offset is stored as "time" in
// milliseconds; a negative offset omits it.
func Encode(ev key.Event, offset time.Duration) ([]byte, error) {
	rec := []byte(`{}`)
	var err error
	set := func(path string, v any) {
		if err == nil {
			rec, err = sjson.SetBytes(rec, path, v)
		}
	}

	set("type", ev.Type.String())
	if ev.Type != key.EventBlur {
		set("key", ev.Key)
		if ev.Code != 0 {
			set("code", ev.Code)
		}
		for _, f := range []struct {
			name string
			on   bool
		}{
			{"shift", ev.Shift},
			{"ctrl", ev.Ctrl},
			{"alt", ev.Alt},
			{"repeat", ev.Repeat},
			{"repeat_reported", ev.RepeatReported},
			{"not_cancelable", ev.NotCancelable},
		} {
			if f.on {
				set(f.name, true)
			}
		}
		if ev.Query != nil {
			set("capslock", ev.Query.ModifierState("CapsLock"))
		}
	}
	if offset >= 0 {
		set("time", offset.Milliseconds())
	}
	return rec, err
}

// Decode parses one recorded transition. A "time" field becomes a
// timestamp that many milliseconds after the Unix epoch; only differences
// between timestamps are meaningful.
func Decode(line string) (key.Event, error) {
	if !gjson.Valid(line) {
		return key.Event{}, ErrInvalidJSON
	}
	rec := gjson.Parse(line)
	if !rec.IsObject() {
		return key.Event{}, ErrNotObject
	}

	typ, ok := key.ParseEventType(rec.Get("type").String())
	if !ok {
		return key.Event{}, fmt.Errorf("%w: %q", ErrEventType, rec.Get("type").String())
	}

	ev := key.Event{
		Type:           typ,
		Key:            rec.Get("key").String(),
		Code:           int(rec.Get("code").Int()),
		Shift:          rec.Get("shift").Bool(),
		Alt:            rec.Get("alt").Bool(),
		Ctrl:           rec.Get("ctrl").Bool(),
		Repeat:         rec.Get("repeat").Bool(),
		RepeatReported: rec.Get("repeat_reported").Bool(),
		NotCancelable:  rec.Get("not_cancelable").Bool(),
	}
	if caps := rec.Get("capslock"); caps.Exists() {
		ev.Query = capsLock(caps.Bool())
	}
	if t := rec.Get("time"); t.Exists() {
		if t.Type != gjson.Number || t.Int() < 0 {
			return key.Event{}, fmt.Errorf("%w: %s", ErrInvalidTime, t.Raw)
		}
		ev.Timestamp = time.UnixMilli(t.Int())
	}
	return ev, nil
}

func capsLock(on bool) key.ModifierQuery {
	return key.ModifierQueryFunc(func(name string) bool {
		return name == "CapsLock" && on
	})
}

// Reader reads recorded transitions.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

// NewReader creates a reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), MaxLineSize)
	return &Reader{sc: sc}
}

// Next returns the next transition, or io.EOF at the end of input.
func (r *Reader) Next() (key.Event, error) {
	for r.sc.Scan() {
		r.line++
		text := strings.TrimSpace(r.sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		return Decode(text)
	}
	if err := r.sc.Err(); err != nil {
		r.line++
		return key.Event{}, err
	}
	return key.Event{}, io.EOF
}

// Line returns the number of the line last read.
func (r *Reader) Line() int {
	return r.line
}

// ReadAll reads every transition from r.
func ReadAll(r io.Reader) ([]key.Event, error) {
	rd := NewReader(r)
	var events []key.Event
	for {
		ev, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", rd.Line(), err)
		}
		events = append(events, ev)
	}
}

// WriteAll writes events as JSON lines. Times are stored relative to the
// first timestamped event.
func WriteAll(w io.Writer, events []key.Event) error {
	var start time.Time
	for _, ev := range events {
		if !ev.Timestamp.IsZero() {
			start = ev.Timestamp
			break
		}
	}

	bw := bufio.NewWriter(w)
	for _, ev := range events {
		offset := time.Duration(-1)
		if !ev.Timestamp.IsZero() {
			offset = max(ev.Timestamp.Sub(start), 0)
		}
		rec, err := Encode(ev, offset)
		if err != nil {
			return err
		}
		bw.Write(rec)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
