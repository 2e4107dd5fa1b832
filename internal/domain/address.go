package domain

// shortAddressEdge is the number of characters kept on each side.
const shortAddressEdge = 6

// ShortAddress renders an account as first 6 + "..." + last 6 characters.
// Values shorter than 12 characters are returned unchanged.
func ShortAddress(addr string) string {
	if len(addr) < 2*shortAddressEdge {
		return addr
	}
	return addr[:shortAddressEdge] + "..." + addr[len(addr)-shortAddressEdge:]
}
