package fshost

import (
	"errors"
	"fmt"
	"strings"

	"github.com/barasher/go-exiftool"
)

// TagStore reads and writes embedded tags in media files.
type TagStore interface {
	ReadTag(path, tag string) (string, error)
	WriteTag(path, tag, value string) error
	Close() error
}

// keyTags maps clip metadata keys to the XMP dynamic media tags that carry
// them inside the file. Keys not listed here cannot be stored.
var keyTags = map[string]string{
	"description":   "XMP-dc:Description",
	"keywords":      "XMP-dc:Subject",
	"comments":      "XMP-xmpDM:LogComment",
	"scene":         "XMP-xmpDM:Scene",
	"shot":          "XMP-xmpDM:ShotName",
	"take":          "XMP-xmpDM:TakeNumber",
	"good take":     "XMP-xmpDM:Good",
	"reel number":   "XMP-xmpDM:TapeName",
	"director":      "XMP-xmpDM:Director",
	"angle":         "XMP-xmpDM:CameraAngle",
	"camera #":      "XMP-xmpDM:CameraLabel",
	"camera type":   "XMP-xmpDM:CameraModel",
	"shoot day":     "XMP-xmpDM:ShotDay",
	"date recorded": "XMP-xmpDM:ShotDate",
	"location":      "XMP-xmpDM:ShotLocation",
	"project":       "XMP-xmpDM:ProjectName",
}

// TagFor returns the file tag that stores key.
func TagFor(key string) (string, bool) {
	tag, ok := keyTags[strings.ToLower(strings.TrimSpace(key))]
	return tag, ok
}

// exiftoolStore drives one stay-open exiftool process.
type exiftoolStore struct {
	et *exiftool.Exiftool
}

// NewExiftoolStore starts exiftool. binary may be empty to use PATH.
func NewExiftoolStore(binary string) (TagStore, error) {
	var opts []func(*exiftool.Exiftool) error
	if binary != "" {
		opts = append(opts, exiftool.SetExiftoolBinaryPath(binary))
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &exiftoolStore{et: et}, nil
}

func (s *exiftoolStore) ReadTag(path, tag string) (string, error) {
	fms := s.et.ExtractMetadata(path)
	if len(fms) == 0 {
		return "", fmt.Errorf("exiftool returned nothing for %s", path)
	}
	if fms[0].Err != nil {
		return "", fms[0].Err
	}

	// Extraction keys drop the group prefix.
	name := tag
	if i := strings.LastIndexByte(tag, ':'); i >= 0 {
		name = tag[i+1:]
	}
	v, err := fms[0].GetString(name)
	if errors.Is(err, exiftool.ErrKeyNotFound) {
		return "", nil
	}
	return v, err
}

func (s *exiftoolStore) WriteTag(path, tag, value string) error {
	fm := exiftool.EmptyFileMetadata()
	fm.File = path
	fm.SetString(tag, value)

	batch := []exiftool.FileMetadata{fm}
	s.et.WriteMetadata(batch)
	return batch[0].Err
}

func (s *exiftoolStore) Close() error {
	return s.et.Close()
}
