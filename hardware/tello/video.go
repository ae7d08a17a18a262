package tello

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
)

// Frame is one decoded video frame. Pixel format is up to the FrameSource.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Time   time.Time
}

// FrameSource decodes the drone video stream in background.
// Decoding is outside of this package, e.g. ffmpeg/gocv wrapper.
type FrameSource interface {
	Start(uri string) error
	Stop() error
	LatestFrame() (Frame, bool)
}

// VideoAddress is where the drone sends video after streamon.
func (self *Session) VideoAddress() string {
	return fmt.Sprintf("udp://0.0.0.0:%d", self.config.VideoPortOrDefault())
}

// FrameRead turns stream on if needed and starts src once.
// Repeated calls return the source started first. End stops it.
func (self *Session) FrameRead(ctx context.Context, src FrameSource) (FrameSource, error) {
	self.framesMu.Lock()
	defer self.framesMu.Unlock()
	if self.frames != nil {
		return self.frames, nil
	}
	if !self.IsStreaming() {
		ok, err := self.StreamOn(ctx)
		if err != nil {
			return nil, errors.Annotate(err, "frame read")
		}
		if !ok {
			return nil, errors.Errorf("frame read: streamon not acknowledged")
		}
	}
	if err := src.Start(self.VideoAddress()); err != nil {
		return nil, errors.Annotate(err, "frame source start")
	}
	self.frames = src
	return src, nil
}

func (self *Session) stopFrames() {
	self.framesMu.Lock()
	defer self.framesMu.Unlock()
	if self.frames == nil {
		return
	}
	if err := self.frames.Stop(); err != nil {
		self.Log.Errorf("%s frame source stop err=%v", modName, err)
	}
	self.frames = nil
}
