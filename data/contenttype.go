package data

import (
	"path/filepath"
	"strings"
)

type ContentType string

const (
	ContentTypeTextPlain         ContentType = "text/plain"
	ContentTypeTextCSV           ContentType = "text/csv"
	ContentTypeImageJPEG         ContentType = "image/jpeg"
	ContentTypeImagePNG          ContentType = "image/png"
	ContentTypeImageTIFF         ContentType = "image/tiff"
	ContentTypeImageBMP          ContentType = "image/bmp"
	ContentTypeImageGIF          ContentType = "image/gif"
	ContentTypeImageWebP         ContentType = "image/webp"
	ContentTypeImageSVGXML       ContentType = "image/svg+xml"
	ContentTypeVideoMP4          ContentType = "video/mp4"
	ContentTypeModelPLY          ContentType = "model/ply"
	ContentTypeModelOBJ          ContentType = "model/obj"
	ContentTypeModelSTL          ContentType = "model/stl"
	ContentTypeApplicationPDF    ContentType = "application/pdf"
	ContentTypeApplicationZip    ContentType = "application/zip"
	ContentTypeApplicationGZip   ContentType = "application/gzip"
	ContentTypeApplicationXTar   ContentType = "application/x-tar"
	ContentTypeApplicationJson   ContentType = "application/json"
	ContentTypeApplicationToml   ContentType = "application/toml"
	ContentTypeApplicationYaml   ContentType = "application/yaml"
	ContentTypeApplicationXML    ContentType = "application/xml"
	ContentTypeApplicationNumpy  ContentType = "application/x-numpy"
	ContentTypeApplicationStream ContentType = "application/octet-stream"
)

// ExtensionToMIME maps file extensions to MIME types
var ExtensionToMIME = map[string]ContentType{
	".txt":  ContentTypeTextPlain,
	".csv":  ContentTypeTextCSV,
	".jpg":  ContentTypeImageJPEG,
	".jpeg": ContentTypeImageJPEG,
	".png":  ContentTypeImagePNG,
	".tif":  ContentTypeImageTIFF,
	".tiff": ContentTypeImageTIFF,
	".bmp":  ContentTypeImageBMP,
	".gif":  ContentTypeImageGIF,
	".webp": ContentTypeImageWebP,
	".svg":  ContentTypeImageSVGXML,
	".mp4":  ContentTypeVideoMP4,
	".ply":  ContentTypeModelPLY,
	".obj":  ContentTypeModelOBJ,
	".stl":  ContentTypeModelSTL,
	".pdf":  ContentTypeApplicationPDF,
	".zip":  ContentTypeApplicationZip,
	".gz":   ContentTypeApplicationGZip,
	".tar":  ContentTypeApplicationXTar,
	".json": ContentTypeApplicationJson,
	".toml": ContentTypeApplicationToml,
	".yml":  ContentTypeApplicationYaml,
	".yaml": ContentTypeApplicationYaml,
	".xml":  ContentTypeApplicationXML,
	".npy":  ContentTypeApplicationNumpy,
	".npz":  ContentTypeApplicationNumpy,
}

// GetMIMEType returns the MIME type for the extension of a file name.
// Unknown and missing extensions map to application/octet-stream.
func GetMIMEType(path string) ContentType {
	ext := strings.ToLower(filepath.Ext(path))

	if mimeType, exists := ExtensionToMIME[ext]; exists {
		return mimeType
	}

	return ContentTypeApplicationStream
}
