package session

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"

	"traject/internal/episode"
	"traject/internal/schema"
)

// Source produces synchronized frames for the capture loop. Next blocks
// until the next tick's frame is available; pacing at the configured frame
// rate is the source's responsibility, since the physical capture loop is an
// external collaborator. Returned frames may reuse internal buffers; the
// episode buffer copies payloads on append.
type Source interface {
	Next(ctx context.Context) (episode.Frame, error)
	Close() error
}

// NewSource instantiates a registered frame source by descriptor name.
func NewSource(name string, sch schema.Schema) (Source, error) {
	switch name {
	case "synthetic":
		return newSyntheticSource(sch), nil
	default:
		return nil, fmt.Errorf("unknown frame source %q", name)
	}
}

// syntheticSource generates schema-conforming frames without hardware:
// sinusoidal numeric vectors and solid-color JPEG payloads for video
// features. It exists so the whole pipeline can run end to end in tests and
// demos.
type syntheticSource struct {
	sch  schema.Schema
	tick int
}

func newSyntheticSource(sch schema.Schema) *syntheticSource {
	return &syntheticSource{sch: sch}
}

func (s *syntheticSource) Next(ctx context.Context) (episode.Frame, error) {
	if err := ctx.Err(); err != nil {
		return episode.Frame{}, err
	}
	values := make(map[string]schema.Value, len(s.sch))
	for name, feat := range s.sch {
		if feat.Numeric() {
			floats := make([]float64, feat.FlatLen())
			for i := range floats {
				floats[i] = math.Sin(float64(s.tick)/10 + float64(i))
			}
			values[name] = schema.Value{Floats: floats}
			continue
		}
		img, err := s.encodeImage(feat)
		if err != nil {
			return episode.Frame{}, err
		}
		values[name] = schema.Value{Image: img}
	}
	s.tick++
	return episode.Frame{Values: values}, nil
}

func (s *syntheticSource) encodeImage(feat schema.Feature) ([]byte, error) {
	height, width := feat.Shape[0], feat.Shape[1]
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	shade := uint8(s.tick % 256)
	fill := color.RGBA{R: shade, G: 255 - shade, B: 128, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode synthetic image: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *syntheticSource) Close() error { return nil }
