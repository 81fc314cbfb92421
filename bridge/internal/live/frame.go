package live

import (
	"fmt"
	"image"
)

// rgbToImage converts a packed RGB24 buffer into an *image.RGBA. The buffer
// length must be exactly width*height*3.
func rgbToImage(data []byte, width, height int) (*image.RGBA, error) {
	want := width * height * 3
	if len(data) != want {
		return nil, fmt.Errorf("frame size mismatch: got %d bytes, want %d for %dx%d RGB",
			len(data), want, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		src := y * width * 3
		dst := y * img.Stride
		for x := 0; x < width; x++ {
			img.Pix[dst+0] = data[src+0]
			img.Pix[dst+1] = data[src+1]
			img.Pix[dst+2] = data[src+2]
			img.Pix[dst+3] = 0xFF
			src += 3
			dst += 4
		}
	}
	return img, nil
}
