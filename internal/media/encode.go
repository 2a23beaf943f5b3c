package media

import (
	"errors"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// EncodeWAV writes track as 16-bit mono PCM.
func EncodeWAV(w io.WriteSeeker, track *AudioTrack) error {
	if track == nil || track.SampleRate <= 0 {
		return errors.New("encode wav: track has no sample rate")
	}

	data := make([]int, len(track.Samples))
	for i, s := range track.Samples {
		v := math.Round(s * 32767)
		data[i] = int(math.Max(-32768, math.Min(32767, v)))
	}

	enc := wav.NewEncoder(w, track.SampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: track.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
