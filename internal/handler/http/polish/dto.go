// Package polish provides HTTP handlers for transcript polishing, summaries
// and the prompt template catalogue.
package polish

import (
	polishUC "transcript-polisher/internal/usecase/polish"
)

// PolishRequest is the body of POST /v1/polish.
type PolishRequest struct {
	Transcript string `json:"transcript" example:"大家好歡迎收聽今天的節目"`
	Template   string `json:"template,omitempty" example:"stock_analysis"`
	// Display requests a front-matter wrapped copy for the static site.
	Display *DisplayDTO `json:"display,omitempty"`
}

// DisplayDTO carries the episode details used for display formatting.
type DisplayDTO struct {
	Title    string `json:"title"`
	Podcast  string `json:"podcast,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
}

func (d *DisplayDTO) meta() polishUC.DisplayMeta {
	return polishUC.DisplayMeta{Title: d.Title, Podcast: d.Podcast, AudioURL: d.AudioURL}
}

// PolishResponse is the body returned by POST /v1/polish.
type PolishResponse struct {
	polishUC.PolishResult
	Formatted string `json:"formatted,omitempty"`
}

// SummarizeRequest is the body of POST /v1/summarize.
type SummarizeRequest struct {
	Transcript string `json:"transcript"`
	Title      string `json:"title,omitempty"`
	Template   string `json:"template,omitempty"`
}

// ProcessRequest is the body of POST /v1/process.
type ProcessRequest struct {
	Transcript string      `json:"transcript"`
	Title      string      `json:"title,omitempty"`
	Template   string      `json:"template,omitempty"`
	SkipPolish bool        `json:"skip_polish,omitempty"`
	Display    *DisplayDTO `json:"display,omitempty"`
}

// ProcessResponse is the body returned by POST /v1/process.
type ProcessResponse struct {
	polishUC.ProcessResult
	Formatted string `json:"formatted,omitempty"`
}

// TemplatesResponse is the body returned by GET /v1/templates.
type TemplatesResponse struct {
	Default   string                  `json:"default"`
	Templates []polishUC.TemplateInfo `json:"templates"`
}
