package security

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MaxImageBytes は添付画像（デコード後）の上限サイズ。
const MaxImageBytes = 2 << 20

var (
	// ErrInvalidImage は画像がdata URLとして不正な場合のエラー。
	ErrInvalidImage = errors.New("image must be a base64 data URL of png, jpeg, gif or webp")
	// ErrImageTooLarge は画像が上限サイズを超える場合のエラー。
	ErrImageTooLarge = errors.New("image is too large")
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateImageDataURL は投稿に添付された画像のdata URLを検証する。
// 空文字列は画像なしとして許可する。
func ValidateImageDataURL(dataURL string) error {
	if dataURL == "" {
		return nil
	}

	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return ErrInvalidImage
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return ErrInvalidImage
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok || !allowedImageTypes[strings.ToLower(mime)] {
		return ErrInvalidImage
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+2 {
		return ErrImageTooLarge
	}
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(decoded) == 0 {
		return ErrInvalidImage
	}
	if len(decoded) > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}
