package report

import (
	"encoding/hex"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

const MaxAttachmentSize = 100 * 1024 * 1024 // 100 MB

// Attachment is a media file bound to a report. ID is generated on the client
// so that a repeated upload overwrites instead of duplicating.
type Attachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Checksum    string `json:"checksum"`
}

// NewAttachment builds an attachment with a fresh id, inferred content type
// and checksum.
func NewAttachment(filename string, data []byte) Attachment {
	a := Attachment{
		ID:       uuid.NewString(),
		Filename: filepath.Base(filename),
		Data:     data,
	}
	a.Prepare()
	return a
}

// Prepare fills in missing derived fields. It is safe to call repeatedly.
func (a *Attachment) Prepare() {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.ContentType == "" {
		a.ContentType = ContentTypeFor(a.Filename)
	}
	if a.Checksum == "" {
		a.Checksum = Checksum(a.Data)
	}
}

func (a Attachment) Size() int64 {
	return int64(len(a.Data))
}

func (a Attachment) Validate() error {
	verr := &ValidationError{}

	if _, err := uuid.Parse(a.ID); err != nil {
		verr.add("attachment.id", "attachment id must be a uuid")
	}
	if strings.TrimSpace(a.Filename) == "" {
		verr.add("attachment.filename", "filename is required")
	}

	switch {
	case len(a.Data) == 0:
		verr.add("attachment.data", a.Filename+": file is empty")
	case a.Size() > MaxAttachmentSize:
		verr.add("attachment.data", a.Filename+": file too large (max 100MB)")
	}

	if !AcceptedContentType(a.ContentType) {
		verr.add("attachment.content_type", a.Filename+": unsupported file type "+a.ContentType)
	}

	if a.Checksum != "" && a.Checksum != Checksum(a.Data) {
		verr.add("attachment.checksum", a.Filename+": checksum mismatch")
	}

	return verr.orNil()
}

// Ext returns the file extension used when the attachment is stored remotely.
func (a Attachment) Ext() string {
	ext := strings.ToLower(filepath.Ext(a.Filename))
	if ext != "" {
		return ext
	}
	if exts, _ := mime.ExtensionsByType(a.ContentType); len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func ContentTypeFor(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	ct := mime.TypeByExtension(ext)
	if ct == "" {
		return "application/octet-stream"
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

// AcceptedContentType allows images, video and PDF documents.
func AcceptedContentType(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "image/") ||
		strings.HasPrefix(mt, "video/") ||
		mt == "application/pdf"
}

// Checksum returns the hex encoded BLAKE2b-256 digest of data.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidateSubmission checks the payload and every attachment, merging all
// field errors into a single ValidationError.
func ValidateSubmission(p Payload, atts []Attachment) error {
	merged := &ValidationError{}
	if err := p.Validate(); err != nil {
		if verr, ok := err.(*ValidationError); ok {
			for k, v := range verr.Fields {
				merged.add(k, v)
			}
		}
	}
	seen := make(map[string]bool, len(atts))
	for _, a := range atts {
		if err := a.Validate(); err != nil {
			if verr, ok := err.(*ValidationError); ok {
				for k, v := range verr.Fields {
					merged.add(k, v)
				}
			}
		}
		if seen[a.ID] {
			merged.add("attachment.id", "duplicate attachment id "+a.ID)
		}
		seen[a.ID] = true
	}
	return merged.orNil()
}
