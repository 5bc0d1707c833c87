// Package render turns canonical notification requests into toast markup
// carrying a freshly minted correlation tag.
package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"notifyd/internal/domain"
)

const basicTemplate = `<toast launch="action=mainContent&amp;tag={tag}" activationType="foreground" duration="long">
    <visual>
        <binding template="ToastGeneric">
            {image}
            <text>{title}</text>
            <text>{message}</text>
        </binding>
    </visual>
    <audio src="ms-winsoundevent:Notification.Default"/>
</toast>`

// NewTag mints a correlation tag. UUIDv4 gives 122 random bits, so collision
// over a process lifetime is negligible.
func NewTag() string {
	return "notification_" + uuid.NewString()
}

// Render produces presentation markup plus the tag embedded in it.
// Deterministic for identical input aside from the tag.
func Render(req *domain.NotificationRequest) (markup, tag string, err error) {
	tag = NewTag()

	if req.RawMarkup != "" {
		// Caller-supplied markup is used verbatim; the tag still rides on
		// the notification object, not the markup.
		return req.RawMarkup, tag, nil
	}

	switch req.Kind {
	case domain.KindBasic, "":
	default:
		return "", "", &domain.ClientError{Msg: fmt.Sprintf("unsupported notification kind: %s", req.Kind)}
	}

	imageXML, err := imageElement(req)
	if err != nil {
		return "", "", err
	}

	markup = strings.NewReplacer(
		"{tag}", tag,
		"{title}", EscapeMarkup(req.Title),
		"{message}", EscapeMarkup(req.Message),
		"{image}", imageXML,
	).Replace(basicTemplate)

	return markup, tag, nil
}

func imageElement(req *domain.NotificationRequest) (string, error) {
	if req.ImagePath != "" && req.ImageData != "" {
		return "", &domain.ClientError{Msg: "image_path and image_data are mutually exclusive"}
	}

	if req.ImagePath != "" {
		abs, err := filepath.Abs(req.ImagePath)
		if err != nil {
			abs = req.ImagePath
		}
		if _, err := os.Stat(abs); err != nil {
			return "", &domain.ClientError{Msg: fmt.Sprintf("image file not found: %s", abs)}
		}
		return fmt.Sprintf(`<image placement="hero" src="%s" />`, EscapeMarkup(abs)), nil
	}

	if req.ImageData != "" {
		// No file to check, but the data is still user text and gets the same
		// escaping as every other field. Valid base64 passes through unchanged.
		return fmt.Sprintf(`<image placement="appLogoOverride" src="data:image/png;base64,%s"/>`, EscapeMarkup(req.ImageData)), nil
	}

	return "", nil
}

// EscapeMarkup escapes the four markup-reserved characters. Applied to every
// user-supplied text field before interpolation; this is the sole injection
// defense.
func EscapeMarkup(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
