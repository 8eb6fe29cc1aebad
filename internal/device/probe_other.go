//go:build !linux

package device

// probe is the non-Linux fallback: it cannot distinguish SSD from HDD or
// inspect mount sources, so it always yields Unknown with conservative
// defaults, per spec §4.1's "never fails" contract.
func probe(root string) (Profile, error) {
	return profileFor(Unknown, ""), nil
}
