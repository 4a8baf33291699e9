package opengl

import (
	"errors"
	"image"

	gl "github.com/go-gl/gl/v4.1-core/gl"
)

var errEmptyImage = errors.New("opengl: texture image is empty")

// uploadTexture creates a mipmapped, repeating RGBA8 texture from img.
func uploadTexture(img *image.RGBA) (uint32, error) {
	b := img.Bounds()
	if b.Empty() || len(img.Pix) == 0 {
		return 0, errEmptyImage
	}
	if img.Stride != 4*b.Dx() {
		// sub-images share their parent's stride
		tight := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(tight.Pix[y*tight.Stride:], img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):][:4*b.Dx()])
		}
		img = tight
	}

	var id uint32
	gl.GenTextures(1, &id)
	gl.BindTexture(gl.TEXTURE_2D, id)

	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)

	gl.TexImage2D(
		gl.TEXTURE_2D,
		0,
		gl.RGBA,
		int32(b.Dx()),
		int32(b.Dy()),
		0,
		gl.RGBA,
		gl.UNSIGNED_BYTE,
		gl.Ptr(img.Pix),
	)
	gl.GenerateMipmap(gl.TEXTURE_2D)

	gl.BindTexture(gl.TEXTURE_2D, 0)
	return id, nil
}
