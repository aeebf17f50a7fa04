package hackernews

import "time"

// Payload is an item as returned by the detail endpoint. Every key is optional
// upstream, so scalar fields are pointers and nil means absent.
type Payload struct {
	ID          *int64  `json:"id"`
	Type        *string `json:"type"`
	By          *string `json:"by"`
	Time        *int64  `json:"time"`
	Title       *string `json:"title"`
	URL         *string `json:"url"`
	Text        *string `json:"text"`
	Score       *int    `json:"score"`
	Descendants *int    `json:"descendants"`
	Kids        []int64 `json:"kids"`
	Parent      *int64  `json:"parent"`
	Deleted     bool    `json:"deleted"`
	Dead        bool    `json:"dead"`
}

// MissingStoryField returns the first required story field that is absent, or "".
func (p *Payload) MissingStoryField() string {
	switch {
	case p.Title == nil:
		return "title"
	case p.URL == nil:
		return "url"
	case p.By == nil || *p.By == "":
		return "by"
	}
	return ""
}

// MissingCommentField returns the first required comment field that is absent, or "".
func (p *Payload) MissingCommentField() string {
	switch {
	case p.Text == nil:
		return "text"
	case p.By == nil || *p.By == "":
		return "by"
	}
	return ""
}

// ExternalID returns the upstream ID, 0 when absent
func (p *Payload) ExternalID() int64 {
	if p.ID == nil {
		return 0
	}
	return *p.ID
}

// Author returns the username, "" when absent
func (p *Payload) Author() string {
	return str(p.By)
}

// TypeName returns the upstream type, "" when absent
func (p *Payload) TypeName() string {
	return str(p.Type)
}

// TitleText returns the title, "" when absent
func (p *Payload) TitleText() string {
	return str(p.Title)
}

// Link returns the story URL, "" when absent
func (p *Payload) Link() string {
	return str(p.URL)
}

// Body returns the comment text, "" when absent
func (p *Payload) Body() string {
	return str(p.Text)
}

// Points returns the score, 0 when absent
func (p *Payload) Points() int {
	if p.Score == nil {
		return 0
	}
	return *p.Score
}

// DescendantCount returns the descendants count, 0 when absent
func (p *Payload) DescendantCount() int {
	if p.Descendants == nil {
		return 0
	}
	return *p.Descendants
}

// CreatedAt converts the unix timestamp to UTC; zero Time when absent
func (p *Payload) CreatedAt() time.Time {
	if p.Time == nil {
		return time.Time{}
	}
	return time.Unix(*p.Time, 0).UTC()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
