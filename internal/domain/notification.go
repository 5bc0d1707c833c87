package domain

// Kind selects the notification template. Only KindBasic exists today;
// new kinds are additive and must not change existing dispatch call sites.
type Kind string

const (
	KindBasic Kind = "basic"
)

// NotificationRequest is the canonical form of one send request. It is built
// once per HTTP call and consumed by the renderer.
type NotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind,omitempty"`

	// ImagePath and ImageData are mutually exclusive: a staged file on disk
	// or inline base64 data, never both.
	ImagePath string `json:"image_path,omitempty"`
	ImageData string `json:"image_data,omitempty"`

	FilePaths       []string `json:"file_paths,omitempty"`
	CallbackCommand string   `json:"callback_command,omitempty"`

	// RawMarkup bypasses the template entirely when set.
	RawMarkup string `json:"raw_markup,omitempty"`
}

// CallbackMetadata is the subset of a request kept for reacting to later
// interaction events. Stored keyed by correlation tag; read, never mutated.
type CallbackMetadata struct {
	CallbackCommand string
	Message         string
	ImagePath       string
	FilePaths       []string
}

// DismissReason reports why a shown notification went away.
type DismissReason string

const (
	DismissUserCanceled      DismissReason = "user_canceled"
	DismissTimedOut          DismissReason = "timed_out"
	DismissApplicationHidden DismissReason = "application_hidden"
	DismissOther             DismissReason = "other"
)
