package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"

	rosbag2 "github.com/lherman-cs/go-rosbag2"
)

var errImageTooSmall = errors.New("image data is smaller than height * step")

type pixelLayout struct {
	channels int
	depth    int
	// offsets of r, g, b, a inside a pixel, -1 when absent
	r, g, b, a int
}

var pixelLayouts = map[string]pixelLayout{
	"rgb8":   {channels: 3, depth: 1, r: 0, g: 1, b: 2, a: -1},
	"bgr8":   {channels: 3, depth: 1, r: 2, g: 1, b: 0, a: -1},
	"8UC3":   {channels: 3, depth: 1, r: 2, g: 1, b: 0, a: -1},
	"rgba8":  {channels: 4, depth: 1, r: 0, g: 1, b: 2, a: 3},
	"bgra8":  {channels: 4, depth: 1, r: 2, g: 1, b: 0, a: 3},
	"8UC4":   {channels: 4, depth: 1, r: 2, g: 1, b: 0, a: 3},
	"mono8":  {channels: 1, depth: 1},
	"8UC1":   {channels: 1, depth: 1},
	"mono16": {channels: 1, depth: 2},
	"16UC1":  {channels: 1, depth: 2},
}

// ToImage converts the pixel buffer of msg into an image.Image.
func ToImage(msg *rosbag2.Image) (image.Image, error) {
	layout, ok := pixelLayouts[msg.Encoding]
	if !ok {
		return nil, fmt.Errorf("unsupported image encoding %q", msg.Encoding)
	}

	if msg.Width == 0 || msg.Height == 0 {
		return nil, fmt.Errorf("empty image %dx%d", msg.Width, msg.Height)
	}

	// header fields are untrusted, bounds are checked in 64 bits
	pixelSize := layout.channels * layout.depth
	if uint64(msg.Step) < uint64(msg.Width)*uint64(pixelSize) {
		return nil, fmt.Errorf("step %d is smaller than a row of %d pixels", msg.Step, msg.Width)
	}
	if uint64(msg.Height) > uint64(len(msg.Data))/uint64(msg.Step) {
		return nil, errImageTooSmall
	}

	width, height, step := int(msg.Width), int(msg.Height), int(msg.Step)
	rect := image.Rect(0, 0, width, height)
	switch {
	case layout.channels == 1 && layout.depth == 1:
		img := image.NewGray(rect)
		for y := 0; y < height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+width], msg.Data[y*step:])
		}
		return img, nil
	case layout.channels == 1:
		var order binary.ByteOrder = binary.LittleEndian
		if msg.IsBigendian != 0 {
			order = binary.BigEndian
		}

		img := image.NewGray16(rect)
		for y := 0; y < height; y++ {
			row := msg.Data[y*step:]
			for x := 0; x < width; x++ {
				img.SetGray16(x, y, color.Gray16{Y: order.Uint16(row[x*2:])})
			}
		}
		return img, nil
	default:
		img := image.NewNRGBA(rect)
		for y := 0; y < height; y++ {
			row := msg.Data[y*step:]
			for x := 0; x < width; x++ {
				px := row[x*pixelSize:]
				alpha := uint8(0xff)
				if layout.a >= 0 {
					alpha = px[layout.a]
				}
				img.SetNRGBA(x, y, color.NRGBA{R: px[layout.r], G: px[layout.g], B: px[layout.b], A: alpha})
			}
		}
		return img, nil
	}
}
