package camx

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
)

// jpegQuality matches the canvas.toDataURL("image/jpeg") default the API's
// face pipeline was tuned against.
const jpegQuality = 92

// EncodeJPEGDataURI encodes a still frame as a base64 JPEG data URI, the
// transport payload the face endpoints accept.
func EncodeJPEGDataURI(frame image.Image) (string, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("failed to encode frame: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
