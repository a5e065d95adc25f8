package executor

// orderHeaders resolves the final header emission order: header_order
// wins for listed names (in the order listed), and any
// remaining headers follow in insertion order, whether or not
// order_headers_as_provided is set. With neither flag set, fields are
// returned unchanged (also insertion order). At most
// one of the two flags should be set by a well-formed request; when both
// are present, header_order takes precedence for the names it lists.
func orderHeaders(fields []HeaderField, headerOrder []string, asProvided bool) []HeaderField {
	if len(headerOrder) == 0 && !asProvided {
		return fields
	}

	byName := make(map[string][]HeaderField, len(fields))
	var insertionOrder []string
	for _, f := range fields {
		if _, ok := byName[f.Name]; !ok {
			insertionOrder = append(insertionOrder, f.Name)
		}
		byName[f.Name] = append(byName[f.Name], f)
	}

	out := make([]HeaderField, 0, len(fields))
	used := make(map[string]bool, len(fields))

	for _, name := range headerOrder {
		if vs, ok := byName[name]; ok {
			out = append(out, vs...)
			used[name] = true
		}
	}

	remainderNames := insertionOrder
	if !asProvided && len(headerOrder) > 0 {
		// header_order present but order_headers_as_provided not set:
		// remainder still emits in insertion order, since that's the
		// only order information available once as-provided wasn't
		// explicitly requested — there is no "natural" order for a map.
	}
	for _, name := range remainderNames {
		if used[name] {
			continue
		}
		out = append(out, byName[name]...)
		used[name] = true
	}

	return out
}

// HeaderNames returns the names, in order, that orderHeaders would emit
// first (the header_order prefix) followed by the remainder — used by
// h2shape.Conn.RoundTrip's headerOrder parameter.
func HeaderNames(req *Request) []string {
	ordered := orderHeaders(req.Headers, req.HeaderOrder, req.OrderHeadersAsProvided)
	seen := make(map[string]bool, len(ordered))
	names := make([]string, 0, len(ordered))
	for _, f := range ordered {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		names = append(names, f.Name)
	}
	return names
}
