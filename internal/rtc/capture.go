package rtc

import (
	"encoding/binary"
	"sync"
)

// captureChunkBytes is 100ms of 24 kHz PCM16.
const captureChunkBytes = SampleRate / 10 * 2

// micCapture buffers decoded microphone PCM and hands fixed-size chunks to
// the session's sink. Close detaches it from the peer's mic reader.
type micCapture struct {
	meter *LevelMeter

	mu     sync.Mutex
	sink   func([]byte)
	buf    []byte
	closed bool
}

func newMicCapture(meter *LevelMeter) *micCapture {
	return &micCapture{meter: meter, buf: make([]byte, 0, captureChunkBytes*2)}
}

func (c *micCapture) Stream(fn func([]byte)) {
	c.mu.Lock()
	c.sink = fn
	c.mu.Unlock()
}

func (c *micCapture) writeSamples(samples []int16) {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	c.write(pcm)
}

func (c *micCapture) write(pcm []byte) {
	if c.meter != nil {
		c.meter.Feed(pcm)
	}
	var chunks [][]byte
	c.mu.Lock()
	if c.closed || c.sink == nil {
		c.mu.Unlock()
		return
	}
	sink := c.sink
	c.buf = append(c.buf, pcm...)
	for len(c.buf) >= captureChunkBytes {
		chunk := make([]byte, captureChunkBytes)
		copy(chunk, c.buf)
		chunks = append(chunks, chunk)
		c.buf = append(c.buf[:0], c.buf[captureChunkBytes:]...)
	}
	c.mu.Unlock()
	for _, ch := range chunks {
		sink(ch)
	}
}

func (c *micCapture) Close() error {
	c.mu.Lock()
	c.closed = true
	c.sink = nil
	c.buf = c.buf[:0]
	c.mu.Unlock()
	return nil
}
