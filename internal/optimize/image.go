package optimize

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/pagelift/pagelift/internal/model"
)

// EncodedImage is a re-encoded image resource replacing the fetched
// original in the optimized mirror.
type EncodedImage struct {
	// URL is the original resource URL.
	URL string

	// Body holds the re-encoded bytes.
	Body []byte

	// ContentType is the media type of the re-encoded image.
	ContentType string

	// LocalPath is the mirror path, with the extension adjusted when
	// the format changed.
	LocalPath string

	// Width and Height are the intrinsic dimensions after re-encoding.
	Width  int
	Height int
}

// reencodeImage attempts to shrink one image resource. The original is
// replaced only when the result is strictly smaller; every other
// outcome is a recorded no-op.
func (o *Optimizer) reencodeImage(res *model.Resource) (*EncodedImage, model.OptimizationAction) {
	if strings.Contains(res.ContentType, "svg") {
		return nil, model.Skipped(model.ActionConvertFormat, res.URL, "vector image")
	}

	img, format, err := image.Decode(bytes.NewReader(res.Body))
	if err != nil {
		return nil, model.Skipped(model.ActionConvertFormat, res.URL, fmt.Sprintf("undecodable image: %v", err))
	}

	switch format {
	case "webp":
		return nil, model.Skipped(model.ActionConvertFormat, res.URL, "already in an efficient format")
	case "gif":
		// GIFs may be animated; a single decoded frame would destroy them.
		return nil, model.Skipped(model.ActionConvertFormat, res.URL, "gif left alone")
	}

	img = o.downscale(img)

	var (
		buf         bytes.Buffer
		contentType string
		kind        model.ActionKind
		ext         string
	)

	switch {
	case format == "png" && opaque(img):
		// An opaque PNG is usually a photo saved in the wrong format.
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.jpegQuality}); err != nil {
			return nil, model.Skipped(model.ActionConvertFormat, res.URL, err.Error())
		}
		contentType, kind, ext = "image/jpeg", model.ActionConvertFormat, ".jpg"

	case format == "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, model.Skipped(model.ActionCompress, res.URL, err.Error())
		}
		contentType, kind, ext = "image/png", model.ActionCompress, ""

	case format == "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: o.jpegQuality}); err != nil {
			return nil, model.Skipped(model.ActionCompress, res.URL, err.Error())
		}
		contentType, kind, ext = "image/jpeg", model.ActionCompress, ""

	default:
		return nil, model.Skipped(model.ActionConvertFormat, res.URL, fmt.Sprintf("unsupported format %q", format))
	}

	if buf.Len() >= res.Size() {
		return nil, model.Skipped(kind, res.URL, "re-encode not smaller")
	}

	bounds := img.Bounds()
	encoded := &EncodedImage{
		URL:         res.URL,
		Body:        buf.Bytes(),
		ContentType: contentType,
		LocalPath:   replaceExt(res.LocalPath, ext),
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
	}
	action := model.Applied(kind, res.URL,
		fmt.Sprintf("%s %d bytes", imageType(res.ContentType, format), res.Size()),
		fmt.Sprintf("%s %d bytes", contentType, buf.Len()))
	return encoded, action
}

// downscale caps the image width at maxImageWidth, preserving aspect
// ratio. Serving images wider than any realistic viewport wastes bytes.
func (o *Optimizer) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= o.maxImageWidth {
		return img
	}
	h := bounds.Dy() * o.maxImageWidth / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, o.maxImageWidth, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// opaque reports whether an image has no transparent pixels. Images
// with transparency must stay in an alpha-capable format.
func opaque(img image.Image) bool {
	type opaquer interface{ Opaque() bool }
	if o, ok := img.(opaquer); ok {
		return o.Opaque()
	}
	return false
}

// replaceExt swaps the extension on a mirror path. An empty ext keeps
// the path unchanged.
func replaceExt(path, ext string) string {
	if ext == "" || path == "" {
		return path
	}
	if i := strings.LastIndexByte(path, '.'); i > strings.LastIndexByte(path, '/') {
		return path[:i] + ext
	}
	return path + ext
}

// imageType prefers the reported Content-Type, falling back to the
// decoded format name.
func imageType(contentType, format string) string {
	if contentType != "" {
		return contentType
	}
	return "image/" + format
}
