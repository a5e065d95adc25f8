package fingerprint

import (
	"strconv"
	"strings"
)

// ParseJA4R decodes a JA4R ("raw") string:
//
//	t<tlsver><d|q><ciphercount><extcount>h<alpn>_<hex ciphers>_<hex extensions>_<hex sigalgs>
//
// The transport character ('t'=TCP, 'q'=QUIC) prefixes the version; cipher
// and extension lists are hex-joined by comma and preserve order exactly as
// given — they are never re-sorted, unlike the JA4 hashed form.
func ParseJA4R(ja4r string) (*TransportSpec, error) {
	underParts := strings.Split(ja4r, "_")
	if len(underParts) != 4 {
		return nil, parseErr("ja4r", "expected 4 underscore-separated segments, got "+strconv.Itoa(len(underParts)), ja4r)
	}
	head, ciphersRaw, extsRaw, sigAlgsRaw := underParts[0], underParts[1], underParts[2], underParts[3]

	if len(head) < 1 || head[0] != 't' && head[0] != 'q' {
		return nil, parseErr("ja4r.transport", "expected leading 't' or 'q' transport marker", ja4r)
	}
	isQUIC := head[0] == 'q'

	if len(head) < 7 {
		return nil, parseErr("ja4r.head", "head segment too short", ja4r)
	}
	rest := head[1:]

	tlsVersStr := rest[:2]
	rest = rest[2:]

	if len(rest) < 1 {
		return nil, parseErr("ja4r.sni", "missing SNI marker", ja4r)
	}
	rest = rest[1:] // SNI marker ('d' domain present / 'i' IP, no SNI content carried in TransportSpec)

	if len(rest) < 2 {
		return nil, parseErr("ja4r.cipher_count", "missing cipher count", ja4r)
	}
	cipherCountStr := rest[:2]
	rest = rest[2:]

	if len(rest) < 2 {
		return nil, parseErr("ja4r.ext_count", "missing extension count", ja4r)
	}
	extCountStr := rest[:2]
	rest = rest[2:]

	if len(rest) < 1 || rest[0] != 'h' {
		return nil, parseErr("ja4r.alpn_marker", "expected 'h' ALPN marker", ja4r)
	}
	alpnStr := rest[1:]

	tlsVers, err := ja4TLSVersion(tlsVersStr)
	if err != nil {
		return nil, parseErr("ja4r.version", err.Error(), ja4r)
	}
	cipherCount, err := strconv.Atoi(cipherCountStr)
	if err != nil {
		return nil, parseErr("ja4r.cipher_count", "non-numeric: "+cipherCountStr, ja4r)
	}
	extCount, err := strconv.Atoi(extCountStr)
	if err != nil {
		return nil, parseErr("ja4r.ext_count", "non-numeric: "+extCountStr, ja4r)
	}

	ciphers, err := parseHexCommaList(ciphersRaw, "ja4r.ciphers", ja4r)
	if err != nil {
		return nil, err
	}
	if len(ciphers) != cipherCount {
		return nil, parseErr("ja4r.cipher_count", "declared count does not match cipher list length", ja4r)
	}

	extIDs, err := parseHexCommaList(extsRaw, "ja4r.extensions", ja4r)
	if err != nil {
		return nil, err
	}
	if len(extIDs) != extCount {
		return nil, parseErr("ja4r.ext_count", "declared count does not match extension list length", ja4r)
	}

	sigAlgs, err := parseHexCommaList(sigAlgsRaw, "ja4r.sigalgs", ja4r)
	if err != nil {
		return nil, err
	}

	exts := make([]ExtensionSpec, 0, len(extIDs))
	for _, id := range extIDs {
		exts = append(exts, ExtensionSpec{ID: id, GREASE: IsGREASE(id)})
	}

	var alpn []string
	if alpnStr != "" && alpnStr != "00" {
		alpn = []string{alpnStr}
	}

	spec := &TransportSpec{
		TLSVersMin:   tlsVers,
		TLSVersMax:   tlsVers,
		CipherSuites: ciphers,
		Extensions:   exts,
		SigAlgs:      sigAlgs,
		ALPN:         alpn,
		JA4R:         ja4r,
	}
	if isQUIC {
		spec.QUIC = &QUICSpec{Raw: ja4r}
	}
	return spec, nil
}

func ja4TLSVersion(code string) (uint16, error) {
	switch code {
	case "13":
		return 0x0304, nil
	case "12":
		return 0x0303, nil
	case "11":
		return 0x0302, nil
	case "10":
		return 0x0301, nil
	default:
		return 0, parseErr("ja4.version", "unrecognized TLS version code "+code, code)
	}
}

func parseHexCommaList(s, field, input string) ([]uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint16, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 16, 16)
		if err != nil {
			return nil, parseErr(field, "invalid hex value \""+p+"\": "+err.Error(), input)
		}
		out = append(out, uint16(v))
	}
	return out, nil
}

// mergeJA4ROverlay layers a JA4R-derived spec's ordering/sigalg authority
// onto a JA3-derived base: JA4R wins for cipher/extension ordering and
// signature-algorithm content, JA3 supplies any missing group/point-format
// data.
func mergeJA4ROverlay(base, overlay *TransportSpec) *TransportSpec {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}
	merged := overlay.Clone()
	if len(merged.Groups) == 0 {
		merged.Groups = append([]uint16(nil), base.Groups...)
	}
	if merged.JA3 == "" {
		merged.JA3 = base.JA3
	}
	return merged
}
