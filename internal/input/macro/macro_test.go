package macro

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/dshills/silverkey/internal/input"
	"github.com/dshills/silverkey/internal/input/key"
)

var epoch = time.UnixMilli(1_000_000)

// Helper to create test events
func makeEvent(typ key.EventType, k string, at time.Duration) key.Event {
	return key.Event{Type: typ, Key: k, Timestamp: epoch.Add(at)}
}

func newEngine(t *testing.T) *input.Engine {
	t.Helper()
	e, err := input.New(input.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	return e
}

// ==================== Codec Tests ====================

func TestEncode(t *testing.T) {
	ev := key.Event{
		Type:  key.EventDown,
		Key:   "s",
		Code:  83,
		Ctrl:  true,
		Query: capsLock(true),
	}
	got, err := Encode(ev, 42*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"keydown","key":"s","code":83,"ctrl":true,"capslock":true,"time":42}`
	if string(got) != want {
		t.Errorf("Encode() = %s, want %s", got, want)
	}

	got, err = Encode(key.Event{Type: key.EventBlur}, -1)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"type":"blur"}` {
		t.Errorf("Encode(blur) = %s", got)
	}
}

func TestDecode(t *testing.T) {
	ev, err := Decode(`{"type":"keyup","key":"Shift","shift":true,"repeat":true,"repeat_reported":true,"not_cancelable":true,"capslock":false,"time":7}`)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != key.EventUp || ev.Key != "Shift" || !ev.Shift || !ev.Repeat || !ev.RepeatReported || !ev.NotCancelable {
		t.Errorf("Decode() = %+v", ev)
	}
	if ev.Query == nil || ev.Query.ModifierState("CapsLock") {
		t.Error("capslock=false should give a query answering false")
	}
	if !ev.Timestamp.Equal(time.UnixMilli(7)) {
		t.Errorf("Timestamp = %v", ev.Timestamp)
	}

	ev, err = Decode(`{"type":"press","key":"a"}`)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Query != nil || !ev.Timestamp.IsZero() {
		t.Error("absent fields should stay zero")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{`{oops`, ErrInvalidJSON},
		{`[1]`, ErrNotObject},
		{`"keydown"`, ErrNotObject},
		{`{"key":"a"}`, ErrEventType},
		{`{"type":"keypress"}`, ErrEventType},
		{`{"type":"keydown","time":-1}`, ErrInvalidTime},
		{`{"type":"keydown","time":"soon"}`, ErrInvalidTime},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.line); !errors.Is(err, tt.want) {
			t.Errorf("Decode(%s) error = %v, want %v", tt.line, err, tt.want)
		}
	}
}

func TestReader(t *testing.T) {
	rd := NewReader(strings.NewReader("# header\n\n{\"type\":\"keydown\",\"key\":\"a\"}\n  \n{\"type\":\"blur\"}\n{bad\n"))

	ev, err := rd.Next()
	if err != nil || ev.Key != "a" || rd.Line() != 3 {
		t.Fatalf("first = %+v, %v, line %d", ev, err, rd.Line())
	}
	ev, err = rd.Next()
	if err != nil || ev.Type != key.EventBlur || rd.Line() != 5 {
		t.Fatalf("second = %+v, %v, line %d", ev, err, rd.Line())
	}
	if _, err := rd.Next(); !errors.Is(err, ErrInvalidJSON) || rd.Line() != 6 {
		t.Errorf("third error = %v, line %d", err, rd.Line())
	}
	if _, err := rd.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("end error = %v", err)
	}
}

func TestReadAllReportsLine(t *testing.T) {
	_, err := ReadAll(strings.NewReader("{\"type\":\"keydown\"}\n{\"type\":\"nope\"}\n"))
	if err == nil || !strings.HasPrefix(err.Error(), "line 2:") {
		t.Errorf("ReadAll() error = %v", err)
	}
}

func TestWriteAllRelativeTimes(t *testing.T) {
	events := []key.Event{
		{Type: key.EventBlur},
		makeEvent(key.EventDown, "a", 0),
		makeEvent(key.EventUp, "a", 35*time.Millisecond),
	}
	var buf bytes.Buffer
	if err := WriteAll(&buf, events); err != nil {
		t.Fatal(err)
	}
	want := `{"type":"blur"}
{"type":"keydown","key":"a","time":0}
{"type":"keyup","key":"a","time":35}
`
	if buf.String() != want {
		t.Errorf("WriteAll() =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestWriteReadProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 20).Draw(t, "n")
		events := make([]key.Event, n)
		at := time.Duration(0)
		for i := range events {
			at += time.Duration(rapid.IntRange(0, 2000).Draw(t, "gap")) * time.Millisecond
			events[i] = key.Event{
				Type:      key.EventType(rapid.IntRange(1, 3).Draw(t, "type")),
				Key:       rapid.SampledFrom([]string{"a", "Shift", "Control", "Escape", "ß"}).Draw(t, "key"),
				Shift:     rapid.Bool().Draw(t, "shift"),
				Ctrl:      rapid.Bool().Draw(t, "ctrl"),
				Timestamp: epoch.Add(at),
			}
			if events[i].Type == key.EventBlur {
				events[i] = key.Event{Type: key.EventBlur, Timestamp: events[i].Timestamp}
			}
		}

		var buf bytes.Buffer
		if err := WriteAll(&buf, events); err != nil {
			t.Fatal(err)
		}
		got, err := ReadAll(&buf)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(events) {
			t.Fatalf("read %d events, wrote %d", len(got), len(events))
		}
		for i := range events {
			want, have := events[i], got[i]
			if want.Type != have.Type || want.Key != have.Key || want.Shift != have.Shift || want.Ctrl != have.Ctrl {
				t.Fatalf("event %d = %+v, want %+v", i, have, want)
			}
			if i > 0 && have.Timestamp.Sub(got[i-1].Timestamp) != want.Timestamp.Sub(events[i-1].Timestamp) {
				t.Fatalf("gap before event %d changed", i)
			}
		}
	})
}

// ==================== Recorder Tests ====================

func TestRecorderBasic(t *testing.T) {
	r := NewRecorder()

	// Initially not recording
	if r.IsRecording() {
		t.Error("new recorder should not be recording")
	}
	r.Record(makeEvent(key.EventDown, "x", 0))
	if r.Len() != 0 {
		t.Error("events recorded while stopped")
	}

	if err := r.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start() error = %v", err)
	}

	r.clock = func() time.Time { return epoch }
	r.Record(key.Event{Type: key.EventDown, Key: "a"})
	r.Record(makeEvent(key.EventUp, "a", time.Second))

	events := r.Stop()
	if len(events) != 2 {
		t.Fatalf("Stop() = %d events", len(events))
	}
	if !events[0].Timestamp.Equal(epoch) {
		t.Errorf("unstamped event got %v", events[0].Timestamp)
	}
	if r.IsRecording() || r.Stop() != nil {
		t.Error("recorder should be stopped")
	}
}

func TestRecorderFreezesQuery(t *testing.T) {
	r := NewRecorder()
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	on := true
	r.Record(key.Event{Type: key.EventDown, Key: "A", Query: key.ModifierQueryFunc(func(string) bool { return on })})
	on = false

	events := r.Stop()
	if !events[0].Query.ModifierState("CapsLock") {
		t.Error("recorded caps lock state changed after the fact")
	}
}

func TestRecorderObserver(t *testing.T) {
	e := newEngine(t)
	r := NewRecorder()
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}
	cancel := e.Observe(r.Observer())
	defer cancel()

	e.HandleEvent(key.Event{Type: key.EventDown, Key: "a"})
	e.HandleEvent(key.Event{Type: key.EventUp, Key: "a"})

	if r.Len() != 2 {
		t.Errorf("Len() = %d, want 2", r.Len())
	}
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder()
	if err := r.Start(); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				r.Record(makeEvent(key.EventDown, "a", time.Duration(i*100+j)))
			}
		}()
	}
	wg.Wait()

	if n := len(r.Stop()); n != 1000 {
		t.Errorf("recorded %d events, want 1000", n)
	}
}

// ==================== Persistence Tests ====================

func TestPersistenceSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.jsonl")
	events := []key.Event{
		makeEvent(key.EventDown, "Control", 0),
		{Type: key.EventDown, Key: "s", Ctrl: true, Timestamp: epoch.Add(50 * time.Millisecond)},
		makeEvent(key.EventUp, "s", 90*time.Millisecond),
	}

	if err := Save(events, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 3 || !got[1].Ctrl || got[2].Timestamp.Sub(got[0].Timestamp) != 90*time.Millisecond {
		t.Errorf("Load() = %+v", got)
	}
}

func TestPersistenceLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "none.jsonl")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.jsonl")
	if err := os.WriteFile(path, []byte("{\"type\":\"keydown\"}\n[]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrNotObject) {
		t.Errorf("bad file error = %v", err)
	}
}

// ==================== Player Tests ====================

func TestPlayerDrivesEngine(t *testing.T) {
	e := newEngine(t)
	fired := 0
	if err := e.BindSequence("g,g", func() { fired++ }); err != nil {
		t.Fatal(err)
	}

	p := NewPlayer()
	if err := e.BindSource(p); err != nil {
		t.Fatal(err)
	}

	events := []key.Event{
		makeEvent(key.EventDown, "g", 0),
		makeEvent(key.EventUp, "g", 10*time.Millisecond),
		makeEvent(key.EventDown, "g", 20*time.Millisecond),
	}
	outs, err := p.Play(context.Background(), events)
	if err != nil {
		t.Fatal(err)
	}
	if fired != 1 || len(outs) != 3 || outs[2].Binding != "g,g" {
		t.Errorf("fired = %d, outcomes = %+v", fired, outs)
	}

	// Recorded timestamps are kept: a long recorded pause expires history.
	events = []key.Event{
		makeEvent(key.EventDown, "g", 3*time.Second),
		makeEvent(key.EventUp, "g", 3*time.Second+10*time.Millisecond),
		makeEvent(key.EventDown, "g", 8*time.Second),
	}
	if _, err := p.Play(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	if fired != 1 {
		t.Error("sequence fired across an expired gap")
	}

	if err := e.UnbindSource(p); err != nil {
		t.Fatal(err)
	}
	outs, _ = p.Play(context.Background(), events)
	if len(outs) != 0 {
		t.Error("unbound player still delivers")
	}
}

func TestPlayerPacing(t *testing.T) {
	p := NewPlayer(WithSpeed(10))
	var stamps []time.Time
	cancel := p.Subscribe(func(ev key.Event) input.Outcome {
		stamps = append(stamps, ev.Timestamp)
		return input.Outcome{Type: ev.Type}
	})
	defer cancel()

	events := []key.Event{
		makeEvent(key.EventDown, "a", 0),
		makeEvent(key.EventUp, "a", 500*time.Millisecond),
	}
	start := time.Now()
	if _, err := p.Play(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("playback took %v, want about 50ms", elapsed)
	}
	if len(stamps) != 2 || stamps[0].Before(start) {
		t.Errorf("paced events should be restamped: %v", stamps)
	}
}

func TestPlayerCancel(t *testing.T) {
	p := NewPlayer(WithSpeed(1))
	events := []key.Event{
		makeEvent(key.EventDown, "a", 0),
		makeEvent(key.EventUp, "a", time.Second),
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.Play(context.Background(), events)
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for !p.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if _, err := p.Play(context.Background(), events); !errors.Is(err, ErrAlreadyPlaying) {
		t.Errorf("concurrent Play() error = %v", err)
	}
	p.Cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Play() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel did not stop playback")
	}
	if p.IsPlaying() {
		t.Error("IsPlaying() after cancel")
	}
}
