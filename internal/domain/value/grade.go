package value

import "strings"

// Grade identifies a grading bucket. The zero value is the raw bucket.
type Grade struct {
	Grader string `json:"grader,omitempty"`
	Value  string `json:"grade,omitempty"`
}

func (g Grade) IsRaw() bool {
	return g.Grader == "" && g.Value == ""
}

func (g Grade) String() string {
	if g.IsRaw() {
		return "raw"
	}
	return strings.TrimSpace(g.Grader + " " + g.Value)
}
