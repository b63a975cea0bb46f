package session

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultShareTitle = "Service in Jeffreys Bay"
	defaultShareText  = "Check out this service in Jeffreys Bay"
)

// ErrShareCancelled is returned by a Sharer when the user dismissed the share sheet.
var ErrShareCancelled = errors.New("share cancelled")

// ShareLink is the payload handed to a share target.
type ShareLink struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// BuildShareLink composes the public link of a listing. Blank title or
// description fall back to generic copy.
func BuildShareLink(baseURL, id, title, description string) ShareLink {
	link := ShareLink{
		URL:   strings.TrimRight(baseURL, "/") + "/service/" + url.PathEscape(id),
		Title: strings.TrimSpace(title),
		Text:  strings.TrimSpace(description),
	}
	if link.Title == "" {
		link.Title = defaultShareTitle
	}
	if link.Text == "" {
		link.Text = defaultShareText
	}
	return link
}

// Sharer hands a link to a platform share facility.
type Sharer interface {
	Share(ctx context.Context, link ShareLink) error
}

// Clipboard copies text for the user to paste.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// ShareMethod reports how a link reached the user.
type ShareMethod string

const (
	ShareNative    ShareMethod = "share"
	ShareClipboard ShareMethod = "clipboard"
	ShareCancelled ShareMethod = "cancelled"
)

// Share tries the platform sharer first and falls back to the clipboard when
// the sharer is missing or fails. A cancelled share is not retried.
func Share(ctx context.Context, link ShareLink, sharer Sharer, clipboard Clipboard) (ShareMethod, error) {
	if sharer != nil {
		err := sharer.Share(ctx, link)
		if err == nil {
			return ShareNative, nil
		}
		if errors.Is(err, ErrShareCancelled) {
			return ShareCancelled, nil
		}
	}
	if clipboard == nil {
		return "", errors.New("no share target available")
	}
	if err := clipboard.WriteText(ctx, link.URL); err != nil {
		return "", fmt.Errorf("copy link: %w", err)
	}
	return ShareClipboard, nil
}
