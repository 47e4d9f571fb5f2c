package model

import "encoding/base64"

// Image is an uploaded image held in memory for the duration of a request.
type Image struct {
	Data     []byte
	MIMEType string
	Filename string

	// Encoded is the base64 form of Data. It is filled once by Encode and
	// shared by every consumer of the image.
	Encoded string
}

// Encode computes the base64 form of the image if it has not been computed yet.
func (img *Image) Encode() {
	if img.Encoded == "" {
		img.Encoded = base64.StdEncoding.EncodeToString(img.Data)
	}
}
