package models

import "fmt"

// NoticeKind classifies a non-fatal advisory
type NoticeKind string

const (
	// IdentityAdvisory: name or birth date differ across merged documents
	IdentityAdvisory NoticeKind = "identity"

	// UnmatchedTarget: a plan target has no matching structure
	UnmatchedTarget NoticeKind = "unmatched-target"

	// UnverifiedTargets: dose references were paired with structures by
	// description alone
	UnverifiedTargets NoticeKind = "unverified-targets"

	// EmptyRecord: an operation was run on a record with no data
	EmptyRecord NoticeKind = "empty-record"
)

// Notice is a structured advisory attached to a successful result
type Notice struct {
	Kind    NoticeKind `yaml:"kind" json:"kind"`
	Field   string     `yaml:"field,omitempty" json:"field,omitempty"`
	Message string     `yaml:"message" json:"message"`

	// Kept and Ignored are the retained and discarded values, if any
	Kept    string `yaml:"kept,omitempty" json:"kept,omitempty"`
	Ignored string `yaml:"ignored,omitempty" json:"ignored,omitempty"`
}

func (n Notice) String() string {
	if n.Field == "" {
		return fmt.Sprintf("[%s] %s", n.Kind, n.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", n.Kind, n.Field, n.Message)
}
