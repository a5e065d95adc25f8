// Package fingerprint decodes JA3/JA4R/HTTP2/QUIC fingerprint strings and
// browser-profile bundles into a normalized TransportSpec.
package fingerprint

// ExtensionSpec is one ordered TLS extension slot. ID is the extension
// type; Data is its spec-declared payload (nil for extensions whose
// content is materialized at handshake time — SNI, key_share,
// session_ticket, pre_shared_key). GREASE marks a slot that must receive
// a freshly chosen GREASE value at handshake time unless DisableGREASE.
type ExtensionSpec struct {
	ID     uint16
	Data   []byte
	GREASE bool
}

// HTTP2Shape is the optional HTTP/2 fingerprint carried by a TransportSpec.
// Settings preserves insertion order; entries absent from the fingerprint
// are omitted from the wire SETTINGS frame rather than defaulted.
type HTTP2Shape struct {
	Settings       []HTTP2Setting
	WindowUpdate   uint32
	PseudoOrder    [4]string // permutation of :method :path :authority :scheme
	HasPriority    bool
	PriorityStream uint32
	PriorityDepend uint32
	PriorityWeight uint8
	PriorityExcl   bool
}

// HTTP2Setting is one SETTINGS entry in fingerprint order.
type HTTP2Setting struct {
	ID  uint16
	Val uint32
}

// QUICSpec is the optional QUIC fingerprint carried by a TransportSpec.
// Fields beyond Version/Raw are opaque to the parser: the engine consumes
// Raw directly.
type QUICSpec struct {
	Version uint32
	Raw     string
}

// TransportSpec is the canonical, fingerprint-derived description of how
// to dial. It is immutable once parsed: reparsing identical input yields
// a structurally equal spec. GREASE randomization happens at handshake
// time (see internal/tlsspec), never here.
type TransportSpec struct {
	TLSVersMin uint16
	TLSVersMax uint16

	CipherSuites []uint16 // ordered; GREASE-valued entries flagged via IsGREASE
	Extensions   []ExtensionSpec
	Groups       []uint16
	SigAlgs      []uint16
	ALPN         []string
	KeyShares    []uint16

	HTTP2 *HTTP2Shape
	QUIC  *QUICSpec

	DisableGREASE bool

	// Origin strings, retained so the Handshake Driver can reconstruct a
	// TLS 1.2 spec from JA3 for the JA3-fallback retry step.
	JA3  string
	JA4R string
}

// Clone returns a deep, independent copy of s. Reparsing must be
// deterministic, and the Synthesizer mutates GREASE/live-content slots
// per handshake, so every consumer clones before mutating.
func (s *TransportSpec) Clone() *TransportSpec {
	if s == nil {
		return nil
	}
	out := *s
	out.CipherSuites = append([]uint16(nil), s.CipherSuites...)
	out.Extensions = make([]ExtensionSpec, len(s.Extensions))
	for i, e := range s.Extensions {
		out.Extensions[i] = ExtensionSpec{ID: e.ID, GREASE: e.GREASE, Data: append([]byte(nil), e.Data...)}
	}
	out.Groups = append([]uint16(nil), s.Groups...)
	out.SigAlgs = append([]uint16(nil), s.SigAlgs...)
	out.ALPN = append([]string(nil), s.ALPN...)
	out.KeyShares = append([]uint16(nil), s.KeyShares...)
	if s.HTTP2 != nil {
		h2 := *s.HTTP2
		h2.Settings = append([]HTTP2Setting(nil), s.HTTP2.Settings...)
		out.HTTP2 = &h2
	}
	if s.QUIC != nil {
		q := *s.QUIC
		out.QUIC = &q
	}
	return &out
}

// BrowserProfile is a named fingerprint bundle resolved to a TransportSpec
// by the parser, with UserAgent/HeaderOrder attached as request-layer
// defaults.
type BrowserProfile struct {
	Name             string   `json:"name" yaml:"name"`
	JA3              string   `json:"ja3" yaml:"ja3"`
	JA4R             string   `json:"ja4r,omitempty" yaml:"ja4r,omitempty"`
	HTTP2Fingerprint string   `json:"http2_fingerprint,omitempty" yaml:"http2_fingerprint,omitempty"`
	QUICFingerprint  string   `json:"quic_fingerprint,omitempty" yaml:"quic_fingerprint,omitempty"`
	UserAgent        string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	HeaderOrder      []string `json:"header_order,omitempty" yaml:"header_order,omitempty"`
	DisableGREASE    bool     `json:"disable_grease,omitempty" yaml:"disable_grease,omitempty"`
	ForceHTTP1       bool     `json:"force_http1,omitempty" yaml:"force_http1,omitempty"`
	ForceHTTP3       bool     `json:"force_http3,omitempty" yaml:"force_http3,omitempty"`
}
