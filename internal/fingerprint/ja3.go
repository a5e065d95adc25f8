package fingerprint

import (
	"strconv"
	"strings"
)

// ParseJA3 decodes a JA3 string into a TransportSpec. A JA3 string is five
// comma-separated fields: TLSVersion, dash-separated Ciphers, dash-separated
// Extensions, dash-separated SupportedGroups, dash-separated ECPointFormats.
// Unknown extension ids are carried as raw opaque extensions with a
// zero-length body unless a JA4R overlay supplies richer content (see
// mergeJA4ROverlay).
func ParseJA3(ja3 string) (*TransportSpec, error) {
	fields := strings.Split(ja3, ",")
	if len(fields) != 5 {
		return nil, parseErr("ja3", "expected 5 comma-separated fields, got "+strconv.Itoa(len(fields)), ja3)
	}

	vers, err := parseUint16(fields[0])
	if err != nil {
		return nil, parseErr("ja3.version", err.Error(), ja3)
	}

	ciphers, err := parseDashUint16List(fields[1], "ja3.ciphers", ja3)
	if err != nil {
		return nil, err
	}
	extIDs, err := parseDashUint16List(fields[2], "ja3.extensions", ja3)
	if err != nil {
		return nil, err
	}
	groups, err := parseDashUint16List(fields[3], "ja3.curves", ja3)
	if err != nil {
		return nil, err
	}
	// EC point formats are single-byte values historically encoded as
	// decimal in JA3; the fifth field is kept for fallback dial
	// compatibility but is not carried forward as its own TransportSpec
	// member — utls derives point format support from the curve list.
	if _, err := parseDashUint16List(fields[4], "ja3.point_formats", ja3); err != nil {
		return nil, err
	}

	exts := make([]ExtensionSpec, 0, len(extIDs))
	for _, id := range extIDs {
		exts = append(exts, ExtensionSpec{ID: id, GREASE: IsGREASE(id)})
	}

	spec := &TransportSpec{
		TLSVersMin:   vers,
		TLSVersMax:   vers,
		CipherSuites: ciphers,
		Extensions:   exts,
		Groups:       groups,
		JA3:          ja3,
	}
	return spec, nil
}

func parseUint16(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

func parseDashUint16List(s, field, input string) ([]uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, "-")
	out := make([]uint16, 0, len(parts))
	for _, p := range parts {
		v, err := parseUint16(p)
		if err != nil {
			return nil, parseErr(field, "invalid decimal value \""+p+"\": "+err.Error(), input)
		}
		out = append(out, v)
	}
	return out, nil
}
