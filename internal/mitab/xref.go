package mitab

import "strings"

// xref is one "db:value(text)" entry of a MITAB column.
type xref struct {
	DB    string
	Value string
	Text  string
}

func (x xref) String() string {
	value := x.Value
	if strings.ContainsAny(value, ":|()\t") {
		value = `"` + value + `"`
	}
	s := x.DB + ":" + value
	if x.Text != "" {
		s += "(" + x.Text + ")"
	}
	return s
}

// splitColumn splits a column on '|' outside of double quotes. A lone "-"
// denotes an empty column.
func splitColumn(col string) []string {
	col = strings.TrimSpace(col)
	if col == "" || col == "-" {
		return nil
	}

	var parts []string
	inQuote := false
	start := 0
	for i := 0; i < len(col); i++ {
		switch col[i] {
		case '"':
			inQuote = !inQuote
		case '|':
			if !inQuote {
				parts = append(parts, col[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, col[start:])
	return parts
}

func parseXref(s string) xref {
	s = strings.TrimSpace(s)
	db, rest, ok := strings.Cut(s, ":")
	if !ok {
		return xref{Value: s}
	}

	x := xref{DB: db}
	if strings.HasPrefix(rest, `"`) {
		end := strings.Index(rest[1:], `"`)
		if end < 0 {
			x.Value = rest[1:]
			return x
		}
		x.Value = rest[1 : end+1]
		rest = rest[end+2:]
	} else if open := strings.Index(rest, "("); open >= 0 {
		x.Value = rest[:open]
		rest = rest[open:]
	} else {
		x.Value = rest
		rest = ""
	}

	if strings.HasPrefix(rest, "(") && strings.HasSuffix(rest, ")") {
		x.Text = rest[1 : len(rest)-1]
	}
	return x
}

func parseXrefs(col string) []xref {
	parts := splitColumn(col)
	if len(parts) == 0 {
		return nil
	}
	refs := make([]xref, 0, len(parts))
	for _, p := range parts {
		refs = append(refs, parseXref(p))
	}
	return refs
}

func formatXrefs(refs []xref) string {
	if len(refs) == 0 {
		return "-"
	}
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = r.String()
	}
	return strings.Join(parts, "|")
}

func values(refs []xref) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.Value
	}
	return out
}
