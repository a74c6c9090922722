package metadata

import (
	"encoding/xml"
	"fmt"

	"github.com/drim2p/drim2p/internal/rawio"
)

// omeDocument captures the subset of an OME-XML descriptor the pipeline
// needs: the pixel dimensions and sample type of the first image.
type omeDocument struct {
	XMLName xml.Name `xml:"OME"`
	Image   struct {
		Pixels struct {
			SizeT int    `xml:"SizeT,attr"`
			SizeY int    `xml:"SizeY,attr"`
			SizeX int    `xml:"SizeX,attr"`
			SizeC int    `xml:"SizeC,attr"`
			Type  string `xml:"Type,attr"`
		} `xml:"Pixels"`
	} `xml:"Image"`
}

// ParseOME extracts shape (T, Y, X and C when multi-channel) and sample type
// from an OME-XML descriptor string.
func ParseOME(descriptor string) ([]int, rawio.DType, error) {
	var doc omeDocument
	if err := xml.Unmarshal([]byte(descriptor), &doc); err != nil {
		return nil, "", fmt.Errorf("failed to parse OME-XML descriptor: %w", err)
	}

	pixels := doc.Image.Pixels
	if pixels.SizeT <= 0 || pixels.SizeY <= 0 || pixels.SizeX <= 0 {
		return nil, "", fmt.Errorf(
			"OME-XML descriptor has invalid dimensions: T=%d Y=%d X=%d",
			pixels.SizeT, pixels.SizeY, pixels.SizeX,
		)
	}

	dtype, err := omeType(pixels.Type)
	if err != nil {
		return nil, "", err
	}

	shape := []int{pixels.SizeT, pixels.SizeY, pixels.SizeX}
	if pixels.SizeC > 1 {
		shape = append(shape, pixels.SizeC)
	}
	return shape, dtype, nil
}

// omeType maps the OME pixel-type vocabulary onto sample types.
func omeType(name string) (rawio.DType, error) {
	switch name {
	case "uint8":
		return rawio.Uint8, nil
	case "uint16":
		return rawio.Uint16, nil
	case "uint32":
		return rawio.Uint32, nil
	case "int8":
		return rawio.Int8, nil
	case "int16":
		return rawio.Int16, nil
	case "int32":
		return rawio.Int32, nil
	case "float":
		return rawio.Float32, nil
	case "double":
		return rawio.Float64, nil
	}
	return "", fmt.Errorf("unsupported OME pixel type %q", name)
}
