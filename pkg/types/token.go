package types

// Token sources, in descending priority.
const (
	SourceSettings = "settings"
	SourceCookie   = "cookie"
	SourceEndpoint = "endpoint"
	SourceNone     = "none"
)

// CSRFToken is an opaque anti-forgery value together with the source that
// produced it. The zero value is the absent token.
type CSRFToken struct {
	Value  string `json:"value,omitempty"`
	Source string `json:"source"`
}

// AbsentToken is the result when no source yielded a value.
var AbsentToken = CSRFToken{Source: SourceNone}

// Present reports whether the token carries a value.
func (t CSRFToken) Present() bool {
	return t.Value != ""
}

// String returns the token source and never the value, so tokens can be
// logged without leaking them.
func (t CSRFToken) String() string {
	if t.Source == "" {
		return SourceNone
	}
	return t.Source
}
