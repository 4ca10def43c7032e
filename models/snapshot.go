package models

// PageSnapshot is the normalized state of one rendered page.
//
// A snapshot is never nil. When FetchError is set, BodyText holds an
// explanation, collections are empty but non-nil, and Screenshot may still
// carry a best-effort capture of the failure state.
type PageSnapshot struct {
	// URL is the final URL after redirects.
	URL      string
	Title    string
	BodyText string
	Forms    []Form
	Links    []Link
	Buttons  []string
	Alerts   []string
	Metadata Metadata

	// Screenshot is a JPEG image, nil when capture failed.
	Screenshot []byte

	FetchError *FetchFailure
}

// Form is a <form> element with its inputs.
type Form struct {
	Action string  `json:"action"`
	Method string  `json:"method"`
	Inputs []Input `json:"inputs"`
}

// Input is a form field.
type Input struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Placeholder string `json:"placeholder"`
}

// Link represents a hyperlink extracted from the page.
type Link struct {
	Href       string `json:"href"`
	Text       string `json:"text,omitempty"`
	IsExternal bool   `json:"isExternal"`
}

// Metadata holds page-level meta tags. Empty strings mean absent.
type Metadata struct {
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Author      string `json:"author,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
}

// FetchFailure records why a page could not be fully extracted.
type FetchFailure struct {
	Kind    ErrorKind
	Message string
}

// Failed reports whether extraction hit an error.
func (s *PageSnapshot) Failed() bool {
	return s.FetchError != nil
}

// FormCount returns the number of forms on the page.
func (s *PageSnapshot) FormCount() int {
	return len(s.Forms)
}

// InputTypes flattens the input types of every form.
func (s *PageSnapshot) InputTypes() []string {
	types := make([]string, 0)
	for _, f := range s.Forms {
		for _, in := range f.Inputs {
			types = append(types, in.Type)
		}
	}
	return types
}

// ExternalLinkCount counts links pointing away from the page's host.
func (s *PageSnapshot) ExternalLinkCount() int {
	n := 0
	for _, l := range s.Links {
		if l.IsExternal {
			n++
		}
	}
	return n
}

// DegradedSnapshot builds the snapshot returned when extraction fails.
func DegradedSnapshot(url string, kind ErrorKind, msg string, screenshot []byte) *PageSnapshot {
	return &PageSnapshot{
		URL:        url,
		Title:      url,
		BodyText:   "Unable to retrieve page content: " + msg,
		Forms:      []Form{},
		Links:      []Link{},
		Buttons:    []string{},
		Alerts:     []string{},
		Screenshot: screenshot,
		FetchError: &FetchFailure{Kind: kind, Message: msg},
	}
}
