// Package symtab implements the four symbol tables (function,
// variable, type, macro; the variable and type tables are scoped, the
// function and macro tables have one global scope), their FNV-1a
// interning, the call graph and
// its Warshall transitive closure, and the unused-function/
// unused-variable diagnostics drained from a priority queue in source
// order.
package symtab

// fnvOffset64 and fnvPrime64 are the standard FNV-1a 64-bit constants.
const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// FNV1a64 hashes name with FNV-1a, then runs an avalanche finalizer
// (MurmurHash3's fmix64) so that hash values destined for a small
// bucket-array modulus don't inherit FNV's weak low-bit mixing.
func FNV1a64(name string) uint64 {
	h := fnvOffset64
	for i := 0; i < len(name); i++ {
		h ^= uint64(name[i])
		h *= fnvPrime64
	}
	return avalanche(h)
}

func avalanche(h uint64) uint64 {
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// mutabilitySalts are the sixteen salts XORed into a type's hash,
// chosen by the first character of the type's name.
var mutabilitySalts = [16]uint64{
	0x9e3779b97f4a7c15, 0xc2b2ae3d27d4eb4f, 0x165667b19e3779f9, 0x27d4eb2f165667c5,
	0x85ebca6b85ebca6b, 0xff51afd7ed558ccd, 0xc4ceb9fe1a85ec53, 0xd6e8feb86659fd93,
	0xa5b85c5e198ed2b3, 0x9e3779b185ebca87, 0x27d4eb2d27d4eb2d, 0x165667b1165667b1,
	0xc2b2ae3dc2b2ae3d, 0x85ebca77c2b2ae63, 0xff51afd7c4ceb9fd, 0x9e3779b9c2b2ae35,
}

// saltForName picks one of the sixteen mutability salts from name's
// first character; the empty string uses salt 0.
func saltForName(name string) uint64 {
	if len(name) == 0 {
		return mutabilitySalts[0]
	}
	return mutabilitySalts[int(name[0])%16]
}

// TypeHash hashes (name, mutability), XORing in the mutability salt.
func TypeHash(name string, mutable bool) uint64 {
	h := FNV1a64(name)
	if mutable {
		h ^= saltForName(name)
	}
	return h
}

// ArrayTypeHash hashes (name, member count, mutability) for array
// types.
func ArrayTypeHash(name string, memberCount int, mutable bool) uint64 {
	h := TypeHash(name, mutable)
	h ^= FNV1a64(name) + uint64(memberCount)*fnvPrime64
	return h
}
