package display

import (
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Panel geometry of the 2.23" OLED.
const (
	Width  = 128
	Height = 32

	marginX     = 1
	lineSpacing = 10
	firstLineY  = 9
)

// Render draws lines into a 1-bit frame laid out in SSD130x page order.
func Render(lines []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{C: image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, line := range clip(lines) {
		d.Dot = fixed.P(marginX, firstLineY+i*lineSpacing)
		d.DrawString(line)
	}
	return img
}
