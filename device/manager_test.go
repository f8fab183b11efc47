package device

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/voicecore/audio"
)

// fakeDevice is a minimal Device test double.
type fakeDevice struct {
	startErr error
	started  atomic.Int32
	priority Priority
	closed   atomic.Bool
}

func (d *fakeDevice) Start(p Priority) error {
	d.priority = p
	d.started.Add(1)
	return d.startErr
}

func (d *fakeDevice) Close() error {
	d.closed.Store(true)
	return nil
}

// fakeRender adds the sink surface required of render devices.
type fakeRender struct {
	fakeDevice
	frames atomic.Int32
}

func (d *fakeRender) AddFrameToBuffer(src *audio.Source, packet []byte, seq int64, msgType audio.MessageType) {
	d.frames.Add(1)
}

func (d *fakeRender) RemoveBuffer(src *audio.Source) {}

// testRegistry registers one capture and one render backend named "fake",
// each handing out a fresh double per start.
func testRegistry(t *testing.T) (*Registry, *[]*fakeDevice, *[]*fakeRender) {
	t.Helper()
	reg := NewRegistry()
	captures := &[]*fakeDevice{}
	renders := &[]*fakeRender{}

	err := reg.RegisterCapture("fake", func(string) (CaptureDevice, error) {
		d := &fakeDevice{}
		*captures = append(*captures, d)
		return d, nil
	})
	require.NoError(t, err)

	err = reg.RegisterRender("fake", func(string) (RenderDevice, error) {
		d := &fakeRender{}
		*renders = append(*renders, d)
		return d, nil
	})
	require.NoError(t, err)

	return reg, captures, renders
}

// TestNewManagerNilRegistry verifies construction fails without a
// registry.
func TestNewManagerNilRegistry(t *testing.T) {
	_, err := NewManager(nil)
	assert.ErrorIs(t, err, ErrNilRegistry)
}

// TestStartOutputInstallsAndStarts verifies the render handle is
// installed and its callback started at the highest priority tier.
func TestStartOutputInstallsAndStarts(t *testing.T) {
	reg, _, renders := testRegistry(t)
	m, err := NewManager(reg)
	require.NoError(t, err)

	require.NoError(t, m.StartOutput("fake"))
	require.Len(t, *renders, 1)

	dev := (*renders)[0]
	assert.Equal(t, int32(1), dev.started.Load())
	assert.Equal(t, PriorityHighest, dev.priority)

	ref := m.AcquireOutput()
	require.NotNil(t, ref)
	assert.Same(t, dev, ref.Value())
	ref.Release()

	m.StopOutput()
}

// TestStartInputPriorityBelowRender verifies capture starts one priority
// tier below render.
func TestStartInputPriorityBelowRender(t *testing.T) {
	reg, captures, _ := testRegistry(t)
	m, err := NewManager(reg)
	require.NoError(t, err)

	require.NoError(t, m.StartInput("fake"))
	require.Len(t, *captures, 1)
	assert.Equal(t, PriorityHigh, (*captures)[0].priority)
	assert.Less(t, PriorityHigh, PriorityHighest)

	m.StopInput()
}

// TestStartUnknownBackendLeavesNoHandle verifies a failing selector
// resolves to absence, not a half-installed handle.
func TestStartUnknownBackendLeavesNoHandle(t *testing.T) {
	reg, _, _ := testRegistry(t)
	m, err := NewManager(reg)
	require.NoError(t, err)

	err = m.StartOutput("nosuch")
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.Nil(t, m.AcquireOutput())
}

// TestStartFailureTearsDown verifies a device that fails Start is closed
// and leaves no handle installed.
func TestStartFailureTearsDown(t *testing.T) {
	reg := NewRegistry()
	dev := &fakeDevice{startErr: errors.New("no such card")}
	require.NoError(t, reg.RegisterCapture("bad", func(string) (CaptureDevice, error) {
		return dev, nil
	}))

	m, err := NewManager(reg)
	require.NoError(t, err)

	err = m.StartInput("bad")
	assert.Error(t, err)
	assert.True(t, dev.closed.Load())
	assert.Nil(t, m.AcquireInput())
}

// TestStopOutputIdempotent verifies stopping with nothing active returns
// immediately without spinning.
func TestStopOutputIdempotent(t *testing.T) {
	reg, _, _ := testRegistry(t)
	m, err := NewManager(reg)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		m.StopOutput()
		m.StopInput()
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop on inactive devices must not block")
	}
}

// TestStopOutputWaitsForOutstandingRef verifies teardown does not run
// while another holder (a callback goroutine) still has a reference, and
// runs synchronously once it is released.
func TestStopOutputWaitsForOutstandingRef(t *testing.T) {
	reg, _, renders := testRegistry(t)
	m, err := NewManager(reg)
	require.NoError(t, err)
	require.NoError(t, m.StartOutput("fake"))
	dev := (*renders)[0]

	callbackRef := m.AcquireOutput()
	require.NotNil(t, callbackRef)

	done := make(chan struct{})
	go func() {
		m.StopOutput()
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("StopOutput returned while a reference was outstanding")
	default:
	}
	assert.False(t, dev.closed.Load(), "device must not close while referenced")

	callbackRef.Release()
	<-done
	assert.True(t, dev.closed.Load())
}

// TestStartOutputSwapsHandles verifies a second start retires the old
// instance before installing a fresh, distinct one.
func TestStartOutputSwapsHandles(t *testing.T) {
	reg, _, renders := testRegistry(t)
	m, err := NewManager(reg)
	require.NoError(t, err)

	require.NoError(t, m.StartOutput("fake"))
	require.NoError(t, m.StartOutput("fake"))
	require.Len(t, *renders, 2)

	first, second := (*renders)[0], (*renders)[1]
	assert.True(t, first.closed.Load(), "old handle must be destroyed before the new start returns")
	assert.False(t, second.closed.Load())

	ref := m.AcquireOutput()
	require.NotNil(t, ref)
	assert.Same(t, second, ref.Value())
	ref.Release()

	m.StopOutput()
}

// TestStopBothSynchronized verifies Stop destroys neither direction while
// the other still has an outstanding reference.
func TestStopBothSynchronized(t *testing.T) {
	reg, captures, renders := testRegistry(t)
	m, err := NewManager(reg)
	require.NoError(t, err)
	require.NoError(t, m.Start("fake", "fake"))

	capDev := (*captures)[0]
	renDev := (*renders)[0]

	// Only the capture side has an in-flight callback reference.
	captureRef := m.AcquireInput()
	require.NotNil(t, captureRef)

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("Stop returned while a reference was outstanding")
	default:
	}
	assert.False(t, capDev.closed.Load())
	assert.False(t, renDev.closed.Load(),
		"render must not be destroyed while capture's reference is outstanding")

	captureRef.Release()
	<-done
	assert.True(t, capDev.closed.Load())
	assert.True(t, renDev.closed.Load())
}

// TestAcquireSink verifies the manager serves the render device as the
// frame sink, and absence as nil.
func TestAcquireSink(t *testing.T) {
	reg, _, renders := testRegistry(t)
	m, err := NewManager(reg)
	require.NoError(t, err)

	sink, release := m.AcquireSink()
	assert.Nil(t, sink)
	assert.Nil(t, release)

	require.NoError(t, m.StartOutput("fake"))
	sink, release = m.AcquireSink()
	require.NotNil(t, sink)

	sink.AddFrameToBuffer(nil, []byte{0x80}, 1, audio.MessageVoiceOpus)
	assert.Equal(t, int32(1), (*renders)[0].frames.Load())
	release()

	m.StopOutput()
}

// TestStartReportsBothFailures verifies the combined start surfaces both
// directions' failures while leaving the system degraded, not broken.
func TestStartReportsBothFailures(t *testing.T) {
	reg := NewRegistry()
	m, err := NewManager(reg)
	require.NoError(t, err)

	err = m.Start("nosuchin", "nosuchout")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.Nil(t, m.AcquireInput())
	assert.Nil(t, m.AcquireOutput())
}

// TestRegistrySelectorSplit verifies "name:rest" routing to factories.
func TestRegistrySelectorSplit(t *testing.T) {
	reg := NewRegistry()
	var got string
	require.NoError(t, reg.RegisterRender("alsa", func(rest string) (RenderDevice, error) {
		got = rest
		return &fakeRender{}, nil
	}))

	_, err := reg.NewRender("alsa:hw:0,1")
	require.NoError(t, err)
	assert.Equal(t, "hw:0,1", got)

	_, err = reg.NewCapture("alsa")
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

// TestRegisterNilFactory verifies nil factories are rejected.
func TestRegisterNilFactory(t *testing.T) {
	reg := NewRegistry()
	assert.ErrorIs(t, reg.RegisterCapture("x", nil), ErrNilFactory)
	assert.ErrorIs(t, reg.RegisterRender("x", nil), ErrNilFactory)
}
