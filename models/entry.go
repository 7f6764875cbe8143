package models

// DirectoryEntry represents one entry of a listed directory
type DirectoryEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

// URLStatus holds the result of checking a published URL
type URLStatus struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code,omitempty"`
	Err        error  `json:"-"`
}

// OK reports whether the URL answered with a 2xx status
func (s URLStatus) OK() bool {
	return s.Err == nil && s.StatusCode >= 200 && s.StatusCode < 300
}
