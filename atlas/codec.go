package atlas

import "image"

// Layer is one image drawn at an offset onto a page.
type Layer struct {
	Image image.Image
	X, Y  int
}

// Codec performs the pixel and byte work for a pass. Implementations must be safe
// for concurrent use.
type Codec interface {
	// Decode parses encoded bytes of the given mime type.
	Decode(data []byte, mime string) (image.Image, error)
	// Resize scales img to exactly width x height.
	Resize(img image.Image, width, height int) image.Image
	// Rotate90 rotates img 90 degrees counter-clockwise.
	Rotate90(img image.Image) image.Image
	// Composite draws layers in order onto a transparent width x height canvas.
	Composite(width, height int, layers []Layer) (image.Image, error)
	// Encode serializes img to the given mime type.
	Encode(img image.Image, mime string) ([]byte, error)
}

// EncodeChecker is implemented by codecs that can report supported output formats.
type EncodeChecker interface {
	CanEncode(mime string) bool
}
