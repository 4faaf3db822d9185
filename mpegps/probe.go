package mpegps

import (
	"errors"

	"github.com/nareix/joy4/codec/h264parser"
	"github.com/sirupsen/logrus"
)

// ErrNoSPS is returned by `ProbeVideo` when the window has no parsable H.264
// sequence parameter set.  H.265 recordings always end up here.
var ErrNoSPS = errors.New("no H.264 sequence parameter set found")

// VideoInfo is what could be learned from the first SPS in a window.
type VideoInfo struct {
	ProfileIdc uint
	LevelIdc   uint
	Width      uint
	Height     uint
}

// ProbeVideo looks for an H.264 SPS in the window.
//
// The pack and PES start codes share the Annex-B prefix, so splitting the raw
// program stream on start codes yields the NAL units along with some junk.
func ProbeVideo(window []byte) (*VideoInfo, error) {
	nalus, _ := h264parser.SplitNALUs(window)
	for naluIndex, nalu := range nalus {
		if len(nalu) == 0 || nalu[0]&0x1f != 7 {
			continue
		}
		spsInfo, err := h264parser.ParseSPS(nalu)
		if err != nil {
			logrus.Debugf("NALU %d: Could not parse SPS: %v", naluIndex, err)
			continue
		}
		logrus.Debugf("NALU %d: profile_idc: %d, width: %d, height: %d", naluIndex, spsInfo.ProfileIdc, spsInfo.Width, spsInfo.Height)
		switch spsInfo.ProfileIdc {
		case 66, 77, 88, 100, 110, 122, 244: // These profiles actually encode real video.
			return &VideoInfo{
				ProfileIdc: spsInfo.ProfileIdc,
				LevelIdc:   spsInfo.LevelIdc,
				Width:      spsInfo.Width,
				Height:     spsInfo.Height,
			}, nil
		}
	}
	return nil, ErrNoSPS
}
