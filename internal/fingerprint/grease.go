package fingerprint

// GREASEValues is the canonical RFC 8701 GREASE set browsers draw from when
// injecting a reserved cipher/extension/group/version identifier.
var GREASEValues = []uint16{
	0x0A0A, 0x1A1A, 0x2A2A, 0x3A3A, 0x4A4A, 0x5A5A, 0x6A6A, 0x7A7A,
	0x8A8A, 0x9A9A, 0xAAAA, 0xBABA, 0xCACA, 0xDADA, 0xEAEA, 0xFAFA,
}

// IsGREASE reports whether v matches the RFC 8701 GREASE pattern: the low
// nibble is 0xA and the high byte equals the low byte.
func IsGREASE(v uint16) bool {
	return v&0x000F == 0x000A && v>>8 == v&0x00FF
}
