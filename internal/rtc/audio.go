package rtc

import (
	"sync"
	"time"

	"github.com/hraban/opus"
	"github.com/pion/webrtc/v3/pkg/media"
)

const (
	// SampleRate is the PCM rate exchanged with the realtime model.
	SampleRate   = 24000
	frameDur     = 20 * time.Millisecond
	frameSamples = SampleRate / 50
)

type sampleWriter interface {
	WriteSample(s media.Sample) error
}

// OpusPacedWriter encodes PCM16LE mono to Opus and writes one frame per 20ms
// to the outbound track. It is the session's playback element.
type OpusPacedWriter struct {
	enc          *opus.Encoder
	track        sampleWriter
	pcmBuf       []int16
	frameSamples int
	frames       chan []byte
	stopCh       chan struct{}
	stopped      bool
	mu           sync.Mutex
}

// NewOpusPacedWriter starts a paced writer at sampleRate with 20ms frames.
func NewOpusPacedWriter(track sampleWriter, sampleRate int) (*OpusPacedWriter, error) {
	enc, err := opus.NewEncoder(sampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, err
	}
	w := &OpusPacedWriter{
		enc:          enc,
		track:        track,
		frameSamples: sampleRate / 50,
		frames:       make(chan []byte, 512),
		stopCh:       make(chan struct{}),
	}
	go w.pacer()
	return w, nil
}

// Play buffers PCM and queues every complete frame.
func (w *OpusPacedWriter) Play(pcmBytes []byte) {
	if len(pcmBytes) < 2 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	need := len(pcmBytes) / 2
	startLen := len(w.pcmBuf)
	if cap(w.pcmBuf)-startLen < need {
		tmp := make([]int16, startLen, startLen+need+2048)
		copy(tmp, w.pcmBuf)
		w.pcmBuf = tmp
	}
	w.pcmBuf = w.pcmBuf[:startLen+need]
	for i := 0; i < need; i++ {
		w.pcmBuf[startLen+i] = int16(uint16(pcmBytes[2*i]) | uint16(pcmBytes[2*i+1])<<8)
	}

	opusBuf := make([]byte, 4000)
	for len(w.pcmBuf) >= w.frameSamples {
		w.encode(w.pcmBuf[:w.frameSamples], opusBuf)
		copy(w.pcmBuf, w.pcmBuf[w.frameSamples:])
		w.pcmBuf = w.pcmBuf[:len(w.pcmBuf)-w.frameSamples]
	}
}

func (w *OpusPacedWriter) encode(frame []int16, buf []byte) {
	if w.enc == nil {
		return
	}
	n, _ := w.enc.Encode(frame, buf)
	if n > 0 {
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		w.pushFrame(pkt)
	}
}

// FlushTail pads the remaining PCM to a full frame.
func (w *OpusPacedWriter) FlushTail() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pcmBuf) == 0 || w.stopped {
		return
	}
	pad := make([]int16, w.frameSamples)
	copy(pad, w.pcmBuf)
	w.encode(pad, make([]byte, 4000))
	w.pcmBuf = w.pcmBuf[:0]
}

// Interrupt drops queued frames so the participant can barge in.
func (w *OpusPacedWriter) Interrupt() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for {
		select {
		case <-w.frames:
		default:
			w.pcmBuf = w.pcmBuf[:0]
			return
		}
	}
}

// Close stops the pacer. Queued frames are discarded.
func (w *OpusPacedWriter) Close() error {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stopCh)
	}
	w.mu.Unlock()
	return nil
}

func (w *OpusPacedWriter) pacer() {
	ticker := time.NewTicker(frameDur)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			select {
			case frame := <-w.frames:
				_ = w.track.WriteSample(media.Sample{Data: frame, Duration: frameDur})
			default:
			}
		}
	}
}

// pushFrame enqueues a frame, dropping it once the writer is stopped.
// Callers hold w.mu; the queue is drained only by the pacer.
func (w *OpusPacedWriter) pushFrame(pkt []byte) {
	select {
	case <-w.stopCh:
	case w.frames <- pkt:
	default:
		// queue full: drop the oldest frame so playback stays live
		select {
		case <-w.frames:
		default:
		}
		select {
		case w.frames <- pkt:
		default:
		}
	}
}
