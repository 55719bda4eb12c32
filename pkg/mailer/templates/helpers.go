package templates

import (
	"strings"
	"time"
)

type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

// WithReviewBase points ReviewURL at the moderation queue under base.
func WithReviewBase(base string) Option {
	return func(d *EmailData) {
		if base = strings.TrimRight(strings.TrimSpace(base), "/"); base != "" {
			d.ReviewURL = base + "/api/advertisements/moderate"
		}
	}
}

// NewModerationAlertData builds the template data for a new advertisement
// awaiting review.
func NewModerationAlertData(appName, recipient string, adID int64, title, authorEmail, status string, opts ...Option) map[string]any {
	d := EmailData{
		AppName:         appName,
		RecipientEmail:  recipient,
		AdvertisementID: adID,
		Title:           title,
		AuthorEmail:     authorEmail,
		Status:          status,
	}
	WithTime(time.Now())(&d)
	for _, o := range opts {
		o(&d)
	}
	return ToMap(d)
}
