package sb3

import (
	"crypto/md5"
	"encoding/hex"
)

// Embedded costume art for exported projects. Asset filenames inside the
// archive must equal the MD5 of the file content, so the images are kept as
// byte-stable constants and hashed at build time.
const (
	stageBackdropSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="480" height="360"><rect width="480" height="360" fill="#ffffff"/></svg>`

	helperSpriteSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="96" height="96"><circle cx="48" cy="48" r="40" fill="#4cbf56" stroke="#2e8b3a" stroke-width="4"/><circle cx="36" cy="40" r="6" fill="#ffffff"/><circle cx="60" cy="40" r="6" fill="#ffffff"/><path d="M32 60 Q48 74 64 60" stroke="#ffffff" stroke-width="4" fill="none" stroke-linecap="round"/></svg>`
)

// asset is one embedded file to pack into the archive.
type asset struct {
	ID     string
	Md5Ext string
	Data   []byte
}

func newSVGAsset(svg string) asset {
	data := []byte(svg)
	sum := md5.Sum(data)
	id := hex.EncodeToString(sum[:])
	return asset{ID: id, Md5Ext: id + ".svg", Data: data}
}

func (a asset) costume(name string, centerX, centerY float64) Costume {
	return Costume{
		Name:            name,
		AssetID:         a.ID,
		Md5Ext:          a.Md5Ext,
		DataFormat:      "svg",
		RotationCenterX: centerX,
		RotationCenterY: centerY,
	}
}
