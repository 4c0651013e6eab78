package core

// Fake drivers for core tests, in the spirit of hardware-free firmware
// testing: they record every call so tests can assert the exact side-effect
// sequence the hardware would see.

type fakeGPIO struct {
	legs [NumLegs]bool
	sets int
}

func (g *fakeGPIO) SetLeg(leg Leg, on bool) {
	g.legs[leg] = on
	g.sets++
}

func (g *fakeGPIO) pattern() [NumLegs]bool {
	return g.legs
}

var (
	patternPositive = [NumLegs]bool{true, true, false, true}
	patternNegative = [NumLegs]bool{false, true, true, true}
	patternOff      = [NumLegs]bool{false, false, false, false}
)

type fakeTimer struct {
	running      bool
	period       uint32
	counterReset int
	pendingClear int
	starts       int
	stops        int
	calls        []string
}

func (t *fakeTimer) StartPeriodic() {
	t.running = true
	t.starts++
	t.calls = append(t.calls, "start")
}

func (t *fakeTimer) Stop() {
	t.running = false
	t.stops++
	t.calls = append(t.calls, "stop")
}

func (t *fakeTimer) SetPeriod(ticks uint32) {
	t.period = ticks
	t.calls = append(t.calls, "set_period")
}

func (t *fakeTimer) ResetCounter() {
	t.counterReset++
	t.calls = append(t.calls, "reset_counter")
}

func (t *fakeTimer) ClearPending() {
	t.pendingClear++
	t.calls = append(t.calls, "clear_pending")
}

type fakeSerial struct {
	frames [][]byte
}

func (s *fakeSerial) Transmit(buf []byte) {
	out := make([]byte, len(buf))
	copy(out, buf)
	s.frames = append(s.frames, out)
}

type fakeTrigger struct {
	fires int
}

func (t *fakeTrigger) Fire() {
	t.fires++
}

// testRig assembles the full core stack over fakes.
type testRig struct {
	gpio   *fakeGPIO
	fast   *fakeTimer
	slow   *fakeTimer
	serial *fakeSerial
	store  *ConfigStore
	conv   *Converter
	seq    *Sequencer
	disp   *Dispatcher
	ctrl   *Controller
	debug  []string
}

func newTestRig() *testRig {
	r := &testRig{
		gpio:   &fakeGPIO{},
		fast:   &fakeTimer{},
		slow:   &fakeTimer{},
		serial: &fakeSerial{},
		store:  &ConfigStore{},
	}
	r.conv = NewConverter(r.fast, r.slow, r.store)
	r.seq = NewSequencer(r.fast, r.slow, NewBridge(r.gpio))
	r.disp = NewDispatcher(r.conv, r.seq, r.store, r.serial)
	r.disp.SetDebugWriter(func(line string) {
		r.debug = append(r.debug, line)
	})
	r.ctrl = NewController(r.disp)
	return r
}
