package model

import "time"

// Article is the page content handed over by the content collaborator
type Article struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	URL   string `json:"url"`
}

// Estimate is the normalized left/right split parsed from a model reply.
// Degenerate is set when neither percentage could be extracted.
type Estimate struct {
	Left       int    `json:"left"`
	Right      int    `json:"right"`
	Raw        string `json:"raw"`
	Degenerate bool   `json:"degenerate"`
}

// Payload is the display-ready result handed to the rendering boundary
type Payload struct {
	ID         string    `json:"id" yaml:"id"`
	Raw        string    `json:"raw" yaml:"raw"`
	Left       int       `json:"left" yaml:"left"`
	Right      int       `json:"right" yaml:"right"`
	Degenerate bool      `json:"degenerate" yaml:"degenerate"`
	Title      string    `json:"title" yaml:"title"`
	URL        string    `json:"url" yaml:"url"`
	Model      string    `json:"model,omitempty" yaml:"model,omitempty"`
	AnalyzedAt time.Time `json:"analyzed_at" yaml:"analyzed_at"`
	Cached     bool      `json:"cached" yaml:"cached"`
}
