// Package resources implements the resource registry and URI template
// matcher (C7): static text/binary resources, function-backed resources,
// file resources with path-safety checks, and HTTP-fetched resources,
// plus parameterized templates resolved against a single trailing
// {param} placeholder.
package resources

import "context"

// Kind discriminates the Resource tagged variant: Text|Binary|Function|File|Http.
type Kind int

const (
	KindText Kind = iota
	KindBinary
	KindFunction
	KindFile
	KindHttp
)

// TextFunc produces a resource's textual content on demand.
type TextFunc func(ctx context.Context) (string, error)

// BinaryFunc produces a resource's binary content on demand.
type BinaryFunc func(ctx context.Context) ([]byte, error)

// resource is the internal representation backing one registered entry.
// Exactly the field(s) implied by Kind are populated.
type resource struct {
	URI         string
	Name        string
	Description string
	MimeType    string
	Kind        Kind

	Text       string
	Binary     []byte
	TextFn     TextFunc
	BinaryFn   BinaryFunc
	FilePath   string
	HttpURL    string
}
