package protocol

// Obfuscator applies the inherited xor/rotation pass to IPC segment bodies
// only (§4.1, §9). It is off by default and only meaningful against a
// cooperating client; Zone/Chat IPC bodies are otherwise cleartext.
type Obfuscator struct {
	Enabled bool
	keys    [2]uint32 // derived per-connection seeds, set during InitZone (§6 world.active_festivals neighbours this)
}

// NewObfuscator builds an Obfuscator. When enabled is false every method is
// a no-op, so callers can apply it unconditionally.
func NewObfuscator(enabled bool, seed1, seed2 uint32) *Obfuscator {
	return &Obfuscator{Enabled: enabled, keys: [2]uint32{seed1, seed2}}
}

// Encode applies the post-encode obfuscation pass in place, if enabled.
func (o *Obfuscator) Encode(body []byte) {
	if o == nil || !o.Enabled {
		return
	}
	o.xorRotate(body, o.keys[0])
}

// Decode applies the pre-decode de-obfuscation pass in place, if enabled.
// The xor/rotate transform is its own inverse given the same key.
func (o *Obfuscator) Decode(body []byte) {
	if o == nil || !o.Enabled {
		return
	}
	o.xorRotate(body, o.keys[0])
}

// xorRotate XORs each byte with a rotating key byte derived from seed,
// rotating the seed by one bit per byte processed.
func (o *Obfuscator) xorRotate(body []byte, seed uint32) {
	key := seed
	for i := range body {
		body[i] ^= byte(key)
		key = (key << 1) | (key >> 31)
	}
}
