// Package catalog holds the product record shared by every reconciliation tool and
// the JSON load/write boundary for product files.
package catalog

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Product is one entry of products.json / lista.json. Fields not declared here are
// kept in Extra and written back untouched.
type Product struct {
	ID             string `json:"id"`
	ReferenceID    string `json:"referenceId"`
	Name           string `json:"name" validate:"notblank"`
	Category       string `json:"category"`
	BrandName      string `json:"brand_name"`
	Tags           string `json:"tags"`
	Description    string `json:"description"`
	Specifications string `json:"specifications"`
	Details        string `json:"details"`
	Price          string `json:"price" validate:"omitempty,max=64"`
	PriceSale      string `json:"price_sale" validate:"omitempty,max=64"`
	StockStatus    string `json:"stockStatus"`
	StockQuantity  *int   `json:"stockQuantity,omitempty" validate:"omitempty,min=0"`
	Stock          *int   `json:"stock,omitempty" validate:"omitempty,min=0"`
	Images         string `json:"images"`

	Extra map[string]json.RawMessage `json:"-"`
}

var textFields = map[string]func(*Product) *string{
	"id":             func(p *Product) *string { return &p.ID },
	"referenceId":    func(p *Product) *string { return &p.ReferenceID },
	"name":           func(p *Product) *string { return &p.Name },
	"category":       func(p *Product) *string { return &p.Category },
	"brand_name":     func(p *Product) *string { return &p.BrandName },
	"tags":           func(p *Product) *string { return &p.Tags },
	"description":    func(p *Product) *string { return &p.Description },
	"specifications": func(p *Product) *string { return &p.Specifications },
	"details":        func(p *Product) *string { return &p.Details },
	"price":          func(p *Product) *string { return &p.Price },
	"price_sale":     func(p *Product) *string { return &p.PriceSale },
	"stockStatus":    func(p *Product) *string { return &p.StockStatus },
	"images":         func(p *Product) *string { return &p.Images },
}

var intFields = map[string]func(*Product) **int{
	"stockQuantity": func(p *Product) **int { return &p.StockQuantity },
	"stock":         func(p *Product) **int { return &p.Stock },
}

// IsEmpty reports whether a field value counts as unset: null, absent and
// whitespace-only values all decode to strings that trim to "".
func IsEmpty(v string) bool {
	return strings.TrimSpace(v) == ""
}

// KnownField reports whether field is part of the declared record schema.
func KnownField(field string) bool {
	if _, ok := textFields[field]; ok {
		return true
	}
	_, ok := intFields[field]
	return ok
}

// fieldOrder is the declared field order, used for write-back and exports.
var fieldOrder = []string{
	"id", "referenceId", "name", "category", "brand_name", "tags", "description",
	"specifications", "details", "price", "price_sale", "stockStatus", "stockQuantity",
	"stock", "images",
}

// Fields lists the declared record fields in their write-back order.
func Fields() []string {
	return append([]string(nil), fieldOrder...)
}

// Get returns the value of field as text. Integer fields render as decimal and
// undeclared fields are read from Extra when they hold a JSON scalar.
func (p *Product) Get(field string) string {
	if f, ok := textFields[field]; ok {
		return *f(p)
	}
	if f, ok := intFields[field]; ok {
		if v := *f(p); v != nil {
			return strconv.Itoa(*v)
		}
		return ""
	}
	raw, ok := p.Extra[field]
	if !ok {
		return ""
	}
	s, err := decodeText(raw)
	if err != nil {
		return ""
	}
	return s
}

// Set stores value under field. Integer fields accept decimal text; an empty value
// clears them.
func (p *Product) Set(field, value string) error {
	if f, ok := textFields[field]; ok {
		*f(p) = value
		return nil
	}
	if f, ok := intFields[field]; ok {
		if IsEmpty(value) {
			*f(p) = nil
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return errors.Wrapf(err, "field %s", field)
		}
		*f(p) = &n
		return nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if p.Extra == nil {
		p.Extra = map[string]json.RawMessage{}
	}
	p.Extra[field] = raw
	return nil
}

// ImageList splits the comma-joined images field.
func (p *Product) ImageList() []string {
	var out []string
	for _, s := range strings.Split(p.Images, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Label is a short identification used in logs and reports.
func (p *Product) Label() string {
	switch {
	case p.ID != "":
		return p.ID
	case p.ReferenceID != "":
		return "ref:" + p.ReferenceID
	default:
		return p.Name
	}
}

func (p Product) Clone() Product {
	c := p
	if p.StockQuantity != nil {
		v := *p.StockQuantity
		c.StockQuantity = &v
	}
	if p.Stock != nil {
		v := *p.Stock
		c.Stock = &v
	}
	if p.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(p.Extra))
		for k, v := range p.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

func (p *Product) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Product{}
	for k, v := range raw {
		if f, ok := textFields[k]; ok {
			s, err := decodeText(v)
			if err != nil {
				return errors.Wrapf(err, "field %s", k)
			}
			*f(p) = s
			continue
		}
		if f, ok := intFields[k]; ok {
			n, err := decodeInt(v)
			if err != nil {
				return errors.Wrapf(err, "field %s", k)
			}
			*f(p) = n
			continue
		}
		if p.Extra == nil {
			p.Extra = map[string]json.RawMessage{}
		}
		p.Extra[k] = v
	}
	return nil
}

// MarshalJSON writes the declared fields in fieldOrder, followed by the Extra
// fields sorted by name. Nil integer fields are omitted.
func (p Product) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	first := true
	put := func(k string, v any) error {
		if first {
			buf.WriteByte('{')
			first = false
		} else {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteByte(':')
		if err := enc.Encode(v); err != nil {
			return err
		}
		buf.Truncate(buf.Len() - 1)
		return nil
	}

	for _, k := range fieldOrder {
		var v any
		if f, ok := textFields[k]; ok {
			v = *f(&p)
		} else if n := *intFields[k](&p); n != nil {
			v = *n
		} else {
			continue
		}
		if err := put(k, v); err != nil {
			return nil, err
		}
	}
	extra := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		if !KnownField(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		if err := put(k, p.Extra[k]); err != nil {
			return nil, err
		}
	}
	if first {
		buf.WriteByte('{')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeText(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		return strconv.FormatBool(t), nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return "", errors.Errorf("unsupported list element %T", item)
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", errors.Errorf("unsupported value %T", v)
	}
}

func decodeInt(raw json.RawMessage) (*int, error) {
	s, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	if IsEmpty(s) {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil, errors.Errorf("not an integer: %q", s)
	}
	n := int(f)
	return &n, nil
}
