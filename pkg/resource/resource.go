// Package resource defines the identity contract shared by StarkBank entities and
// the descriptor-driven codec that maps them to and from the wire.
package resource

import (
	"strings"
	"unicode"
)

// Resource is embedded by every entity mirrored from the StarkBank API.
type Resource struct {
	ID string `json:"id,omitempty"`
}

// Identity returns the remote id; empty before the entity is created.
func (r Resource) Identity() string { return r.ID }

// Identifiable is satisfied by every type embedding Resource.
type Identifiable interface {
	Identity() string
}

// Descriptor binds a Go type to its wire name. Name is the CamelCase resource
// name used by the API, e.g. "Invoice", "InvoiceLog", "BrcodePayment".
type Descriptor[T Identifiable] struct {
	Name string
}

// Describe returns the descriptor for the named resource.
func Describe[T Identifiable](name string) Descriptor[T] {
	return Descriptor[T]{Name: name}
}

// Endpoint returns the endpoint path relative to the API version root.
//
//	Invoice         -> invoice
//	InvoiceLog      -> invoice/log
//	BrcodePayment   -> brcode-payment
//	CorporateHolder -> corporate-holder
func (d Descriptor[T]) Endpoint() string {
	path := kebab(d.Name)
	path = strings.ReplaceAll(path, "-log", "/log")
	path = strings.ReplaceAll(path, "-attempt", "/attempt")
	return path
}

// Key returns the JSON key wrapping a single entity: the last word of the
// name, e.g. "log" for InvoiceLog and "payment" for BrcodePayment.
func (d Descriptor[T]) Key() string {
	parts := strings.Split(kebab(d.Name), "-")
	return parts[len(parts)-1]
}

// PluralKey returns the JSON key wrapping entity lists, e.g. "logs".
func (d Descriptor[T]) PluralKey() string {
	return plural(d.Key())
}

// Path joins the endpoint with an optional id.
func (d Descriptor[T]) Path(id string) string {
	if id == "" {
		return d.Endpoint()
	}
	return d.Endpoint() + "/" + id
}

func kebab(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func plural(key string) string {
	switch {
	case strings.HasSuffix(key, "s"):
		return key
	case strings.HasSuffix(key, "ey"):
		return key + "s"
	case strings.HasSuffix(key, "y"):
		return strings.TrimSuffix(key, "y") + "ies"
	default:
		return key + "s"
	}
}
