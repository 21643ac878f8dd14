package capture

import "image"

// bgraToRGBA converts 32-bit BGRA/BGRX pixels into RGBA with an opaque alpha.
// dst and src must have the same length.
func bgraToRGBA(dst, src []byte) {
	for i := 0; i+3 < len(src); i += 4 {
		dst[i+0] = src[i+2]
		dst[i+1] = src[i+1]
		dst[i+2] = src[i+0]
		dst[i+3] = 255
	}
}

// pasteBGRA converts the tightly packed BGRX pixels in src into dst at the
// rectangle at, row by row. at must lie within dst.Bounds().
func pasteBGRA(dst *image.RGBA, at image.Rectangle, src []byte) {
	rowBytes := at.Dx() * 4
	for y := 0; y < at.Dy(); y++ {
		off := dst.PixOffset(at.Min.X, at.Min.Y+y)
		bgraToRGBA(dst.Pix[off:off+rowBytes], src[y*rowBytes:(y+1)*rowBytes])
	}
}

// fillOpaque sets every pixel of img to opaque black
func fillOpaque(img *image.RGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = 0
		img.Pix[i+1] = 0
		img.Pix[i+2] = 0
		img.Pix[i+3] = 255
	}
}
