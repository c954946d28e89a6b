package rtc

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/webrtc/v3/pkg/media"
)

type fakeTrack struct{ writes int32 }

func (f *fakeTrack) WriteSample(s media.Sample) error {
	atomic.AddInt32(&f.writes, 1)
	return nil
}

func newTestWriter(track sampleWriter, queue int) *OpusPacedWriter {
	return &OpusPacedWriter{
		track:        track,
		frameSamples: frameSamples,
		frames:       make(chan []byte, queue),
		stopCh:       make(chan struct{}),
	}
}

func TestOpusPacedWriter_PacerWritesFrames(t *testing.T) {
	ft := &fakeTrack{}
	w := newTestWriter(ft, 8)
	done := make(chan struct{})
	go func() { w.pacer(); close(done) }()

	for i := 0; i < 3; i++ {
		w.pushFrame([]byte{0x01, 0x02})
	}
	time.Sleep(70 * time.Millisecond)
	_ = w.Close()
	<-done

	if atomic.LoadInt32(&ft.writes) == 0 {
		t.Fatalf("expected pacer to write at least one frame")
	}
}

func TestOpusPacedWriter_InterruptDrains(t *testing.T) {
	w := newTestWriter(&fakeTrack{}, 8)
	w.pcmBuf = []int16{1, 2, 3}
	w.frames <- []byte{0x01}
	w.frames <- []byte{0x02}
	w.Interrupt()
	select {
	case <-w.frames:
		t.Fatalf("expected frames channel to be drained")
	default:
	}
	if len(w.pcmBuf) != 0 {
		t.Fatalf("expected pcmBuf to be reset, got len=%d", len(w.pcmBuf))
	}
}

func TestOpusPacedWriter_FullQueueDropsOldest(t *testing.T) {
	w := newTestWriter(&fakeTrack{}, 2)
	w.pushFrame([]byte{1})
	w.pushFrame([]byte{2})
	w.pushFrame([]byte{3})
	if first := <-w.frames; first[0] != 2 {
		t.Fatalf("expected oldest frame dropped, head=%v", first)
	}
}

func TestOpusPacedWriter_PlayAfterCloseIsNoop(t *testing.T) {
	w := newTestWriter(&fakeTrack{}, 2)
	_ = w.Close()
	_ = w.Close()
	w.Play(make([]byte, frameSamples*2))
	if len(w.pcmBuf) != 0 || len(w.frames) != 0 {
		t.Fatalf("expected no buffering after close")
	}
}
