package emu

import (
	"image"
	"image/color"
	"image/png"
	"os"

	"nescore/hw"
)

// SaveAsPNG writes a 256x240 ARGB framebuffer to path.
func SaveAsPNG(frame []uint32, path string) error {
	img := image.NewRGBA(image.Rect(0, 0, hw.NTSCWidth, hw.NTSCHeight))
	for y := 0; y < hw.NTSCHeight; y++ {
		for x := 0; x < hw.NTSCWidth; x++ {
			argb := frame[y*hw.NTSCWidth+x]
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(argb >> 16),
				G: uint8(argb >> 8),
				B: uint8(argb),
				A: uint8(argb >> 24),
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}
