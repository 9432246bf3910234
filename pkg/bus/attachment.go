package bus

// AttachmentKind names one of the five file kinds a message can carry.
type AttachmentKind string

const (
	KindDocument AttachmentKind = "document"
	KindPhoto    AttachmentKind = "photo"
	KindVideo    AttachmentKind = "video"
	KindAudio    AttachmentKind = "audio"
	KindVoice    AttachmentKind = "voice"
)

// Attachment is a closed set: Document, Photo, Video, Audio or Voice.
type Attachment interface {
	Kind() AttachmentKind
	ID() string
	attachment()
}

type Document struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Size     int64  `json:"file_size,omitempty"`
	// URL is only set for documents discovered on a public channel page.
	URL string `json:"url,omitempty"`
}

// Photo keeps the highest resolution variant only.
type Photo struct {
	FileID string `json:"file_id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type Video struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
}

type Audio struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name,omitempty"`
}

type Voice struct {
	FileID string `json:"file_id"`
}

func (Document) Kind() AttachmentKind { return KindDocument }
func (Photo) Kind() AttachmentKind    { return KindPhoto }
func (Video) Kind() AttachmentKind    { return KindVideo }
func (Audio) Kind() AttachmentKind    { return KindAudio }
func (Voice) Kind() AttachmentKind    { return KindVoice }

func (a Document) ID() string { return a.FileID }
func (a Photo) ID() string    { return a.FileID }
func (a Video) ID() string    { return a.FileID }
func (a Audio) ID() string    { return a.FileID }
func (a Voice) ID() string    { return a.FileID }

func (Document) attachment() {}
func (Photo) attachment()    {}
func (Video) attachment()    {}
func (Audio) attachment()    {}
func (Voice) attachment()    {}
