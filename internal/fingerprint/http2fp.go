package fingerprint

import (
	"strconv"
	"strings"
)

// ParseHTTP2Fingerprint decodes an Akamai-style HTTP/2 fingerprint string:
//
//	settings|window_update|priority|pseudo_order
//
// settings is "k:v;k:v;..." in insertion order (entries absent from the
// string are omitted from the wire SETTINGS frame, never defaulted);
// window_update is a decimal increment (0 = no connection-level
// WINDOW_UPDATE beyond the default); priority is
// "streamID:exclusive:depends:weight" or "0" for none; pseudo_order is a
// comma-joined permutation of m,p,a,s (:method :path :authority :scheme).
func ParseHTTP2Fingerprint(fp string) (*HTTP2Shape, error) {
	fields := strings.Split(fp, "|")
	if len(fields) != 4 {
		return nil, parseErr("http2", "expected 4 pipe-separated fields, got "+strconv.Itoa(len(fields)), fp)
	}
	settingsRaw, windowRaw, priorityRaw, pseudoRaw := fields[0], fields[1], fields[2], fields[3]

	shape := &HTTP2Shape{}

	if settingsRaw != "" {
		for _, entry := range strings.Split(settingsRaw, ";") {
			kv := strings.SplitN(entry, ":", 2)
			if len(kv) != 2 {
				return nil, parseErr("http2.settings", "malformed entry \""+entry+"\", expected k:v", fp)
			}
			k, err := strconv.ParseUint(kv[0], 10, 16)
			if err != nil {
				return nil, parseErr("http2.settings", "non-numeric setting id \""+kv[0]+"\"", fp)
			}
			v, err := strconv.ParseUint(kv[1], 10, 32)
			if err != nil {
				return nil, parseErr("http2.settings", "non-numeric setting value \""+kv[1]+"\"", fp)
			}
			shape.Settings = append(shape.Settings, HTTP2Setting{ID: uint16(k), Val: uint32(v)})
		}
	}

	wu, err := strconv.ParseUint(windowRaw, 10, 32)
	if err != nil {
		return nil, parseErr("http2.window_update", "non-numeric increment \""+windowRaw+"\"", fp)
	}
	shape.WindowUpdate = uint32(wu)

	if priorityRaw != "0" && priorityRaw != "" {
		p := strings.Split(priorityRaw, ":")
		if len(p) != 4 {
			return nil, parseErr("http2.priority", "expected streamID:exclusive:depends:weight", fp)
		}
		streamID, err := strconv.ParseUint(p[0], 10, 32)
		if err != nil {
			return nil, parseErr("http2.priority", "non-numeric stream id", fp)
		}
		excl := p[1] == "1"
		depends, err := strconv.ParseUint(p[2], 10, 32)
		if err != nil {
			return nil, parseErr("http2.priority", "non-numeric depends-on", fp)
		}
		weight, err := strconv.ParseUint(p[3], 10, 8)
		if err != nil {
			return nil, parseErr("http2.priority", "non-numeric weight", fp)
		}
		shape.HasPriority = true
		shape.PriorityStream = uint32(streamID)
		shape.PriorityExcl = excl
		shape.PriorityDepend = uint32(depends)
		shape.PriorityWeight = uint8(weight)
	}

	order := strings.Split(pseudoRaw, ",")
	if len(order) != 4 {
		return nil, parseErr("http2.pseudo_order", "expected 4 comma-separated letters (m,p,a,s permutation)", fp)
	}
	seen := map[string]bool{}
	for i, letter := range order {
		name, ok := pseudoHeaderName(letter)
		if !ok {
			return nil, parseErr("http2.pseudo_order", "unknown pseudo-header letter \""+letter+"\"", fp)
		}
		if seen[name] {
			return nil, parseErr("http2.pseudo_order", "duplicate pseudo-header \""+name+"\"", fp)
		}
		seen[name] = true
		shape.PseudoOrder[i] = name
	}

	return shape, nil
}

func pseudoHeaderName(letter string) (string, bool) {
	switch strings.TrimSpace(letter) {
	case "m":
		return ":method", true
	case "p":
		return ":path", true
	case "a":
		return ":authority", true
	case "s":
		return ":scheme", true
	default:
		return "", false
	}
}
