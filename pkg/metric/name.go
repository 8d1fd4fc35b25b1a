package metric

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logfmt/logfmt"
)

type labels map[string]string

// Name identifies a charted series, such as temperature_xbar or humidity_range.  Labels narrow the series down to
// the collection and chart it was computed from.  Names are marshalled with a modified logfmt, e.g.
// temperature_xbar[chart=X kind=temperature @complete]
type Name struct {
	name string
	md   labels
}

// NewName returns a new name with a copy of the supplied labels
func NewName(name string, md map[string]string) Name {
	return Name{name: name, md: copyLabels(md)}
}

// String marshals the name, e.g. temperature_xbar[chart=X kind=temperature]
func (n Name) String() string {
	md, err := MarshalText(n.md)
	if err != nil {
		md = []byte{}
	}
	return n.name + string(md)
}

// With returns a new name with the label upserted.  The receiver is left unchanged.
func (n Name) With(key, value string) Name {
	md := copyLabels(n.md)
	md[key] = value
	return Name{name: n.name, md: md}
}

// Annotate returns a new name carrying valueless annotations, rendered as @annotation
func (n Name) Annotate(ann ...string) Name {
	md := copyLabels(n.md)
	for _, a := range ann {
		md[a] = ""
	}
	return Name{name: n.name, md: md}
}

// Label returns the value of a label and whether it was set
func (n Name) Label(key string) (string, bool) {
	v, ok := n.md[key]
	return v, ok
}

// MarshalText encodes labels as [k=v ... @annotation ...] with keys and annotations each in sorted order.
// Empty label sets encode to nothing.
func MarshalText(m labels) ([]byte, error) {
	if len(m) == 0 {
		return []byte{}, nil
	}
	keys := make([]string, 0, len(m))
	ann := make([]string, 0, len(m))
	for k, v := range m {
		switch v {
		case "":
			ann = append(ann, "@"+k)
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	sort.Strings(ann)

	var b bytes.Buffer
	b.WriteByte('[')
	e := logfmt.NewEncoder(&b)
	for _, k := range keys {
		if err := e.EncodeKeyval(k, m[k]); err != nil {
			return nil, fmt.Errorf("failed to encode %s=%s: %w", k, m[k], err)
		}
	}
	if len(keys) > 0 && len(ann) > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(strings.Join(ann, " "))
	b.WriteByte(']')
	return b.Bytes(), nil
}

func copyLabels(md map[string]string) labels {
	out := make(labels, len(md))
	for k, v := range md {
		out[k] = v
	}
	return out
}
