package crop

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"

	"github.com/andresmejia3/facecrop/internal/types"
)

// Mode selects how a polygon is reduced to a rectangle.
type Mode string

const (
	// ModeSmallest uses the two smallest distinct values on each axis.
	// It equals the true bounding box only for axis-aligned rectangles.
	ModeSmallest Mode = "smallest"
	// ModeBounds uses the minimum and maximum value on each axis.
	ModeBounds Mode = "bounds"
)

// maxKeySuffix is the inclusive upper bound of the random crop key suffix.
const maxKeySuffix = 100000

var (
	ErrDegeneratePolygon = errors.New("polygon needs at least two distinct x and y values")
	ErrEmptyRect         = errors.New("crop rectangle does not intersect the image")
	ErrNotImage          = errors.New("object is not a supported image")
)

// acceptedTypes are the formats imaging can decode.
var acceptedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff"}

// Rect reduces a face polygon to the axis-aligned rectangle that is cropped.
// Min is (left, top), Max is (right, bottom).
func Rect(face types.Polygon, mode Mode) (image.Rectangle, error) {
	xs := make([]int, 0, len(face))
	ys := make([]int, 0, len(face))
	for _, v := range face {
		xs = append(xs, int(v.X))
		ys = append(ys, int(v.Y))
	}
	slices.Sort(xs)
	slices.Sort(ys)
	xs = slices.Compact(xs)
	ys = slices.Compact(ys)

	if len(xs) < 2 || len(ys) < 2 {
		return image.Rectangle{}, fmt.Errorf("%w: %d distinct x, %d distinct y", ErrDegeneratePolygon, len(xs), len(ys))
	}

	if mode == ModeBounds {
		return image.Rect(xs[0], ys[0], xs[len(xs)-1], ys[len(ys)-1]), nil
	}
	return image.Rect(xs[0], ys[0], xs[1], ys[1]), nil
}

// Decode sniffs the content type before decoding so that non-image objects
// fail with a clear error instead of a decoder message.
func Decode(data []byte) (image.Image, error) {
	mt := mimetype.Detect(data)
	if !slices.Contains(acceptedTypes, mt.String()) {
		return nil, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Crop cuts rect out of img. The rectangle is clipped to the image bounds.
func Crop(img image.Image, rect image.Rectangle) (image.Image, error) {
	if rect.Intersect(img.Bounds()).Empty() {
		return nil, fmt.Errorf("%w: %v outside %v", ErrEmptyRect, rect, img.Bounds())
	}
	return imaging.Crop(img, rect), nil
}

// EncodeJPEG re-encodes img as JPEG with the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// FaceKey derives the object key of a crop: face_<key without .jpg>_<n>.jpg
// with n drawn from [0, 100000]. Collisions are possible and not checked.
func FaceKey(objectKey string) string {
	return fmt.Sprintf("face_%s_%d.jpg", strings.TrimSuffix(objectKey, ".jpg"), rand.IntN(maxKeySuffix+1))
}

// Face runs the whole crop step for one message: decode, rect, crop, encode.
func Face(data []byte, face types.Polygon, mode Mode, quality int) ([]byte, image.Rectangle, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	rect, err := Rect(face, mode)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	cut, err := Crop(img, rect)
	if err != nil {
		return nil, rect, err
	}
	out, err := EncodeJPEG(cut, quality)
	if err != nil {
		return nil, rect, err
	}
	return out, rect, nil
}
