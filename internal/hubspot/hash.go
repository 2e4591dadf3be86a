package hubspot

import "unicode/utf16"

// HashDomain is HubSpot's cookie-domain string hash. It walks the UTF-16 code
// units of domain from last to first using wrapping 32-bit arithmetic.
func HashDomain(domain string) int32 {
	units := utf16.Encode([]rune(domain))

	var acc int32
	for i := len(units) - 1; i >= 0; i-- {
		c := int32(units[i])
		acc = ((acc << 6) & 0x0FFFFFFF) + c + (c << 14)
		if masked := acc & 0x0FE00000; masked != 0 {
			acc ^= masked >> 21
		}
	}
	return acc
}
