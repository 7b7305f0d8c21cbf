// Package jwcrypto implements the publication container's content protection:
// a key/IV derived from publication metadata, AES-128-CBC decryption, and zlib
// decompression of document blobs.
//
// The derivation is a reverse-engineered protocol with no integrity check
// anywhere downstream; the only signal for a wrong key is a corrupt zlib
// stream. Every step here must stay bit-for-bit stable.
package jwcrypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// masterKeyBase64 is the embedded master key exactly as it appears in the
// reference implementation: base64 wrapping a hex string wrapping 32 raw
// bytes. The double encoding is part of the protocol; do not flatten it.
const masterKeyBase64 = "MTFjYmI1NTg3ZTMyODQ2ZDRjMjY3OTBjNjMzZGEyODlmNjZmZTU4NDJhM2E1ODVjZTFiYzNhMjk0YWY1YWRhNw=="

var masterKey = mustDecodeMasterKey()

// Secret holds the AES key and IV derived for one container. Both are always
// exactly 16 bytes. The value is safe for concurrent reads.
type Secret struct {
	Key [16]byte
	IV  [16]byte
}

// KeyHex returns the key as a 32-character lowercase hex string.
func (s Secret) KeyHex() string { return hex.EncodeToString(s.Key[:]) }

// IVHex returns the IV as a 32-character lowercase hex string.
func (s Secret) IVHex() string { return hex.EncodeToString(s.IV[:]) }

// DeriveSecret computes the AES key and IV for a publication card string of
// the form MepsLanguageIndex_Symbol_Year_IssueTagNumber:
//
//  1. SHA-256 the UTF-8 card string (32 bytes).
//  2. XOR the digest byte-for-byte with the decoded master key, cycling the
//     key if it were shorter (both are 32 bytes in practice).
//  3. The first 16 bytes of the result are the key, the next 16 the IV.
//
// The derivation is deterministic; the same card always yields the same
// secret.
func DeriveSecret(pubCard string) Secret {
	digest := sha256.Sum256([]byte(pubCard))

	var xored [32]byte
	for i := range digest {
		xored[i] = digest[i] ^ masterKey[i%len(masterKey)]
	}

	var secret Secret
	copy(secret.Key[:], xored[:16])
	copy(secret.IV[:], xored[16:])
	return secret
}

func mustDecodeMasterKey() []byte {
	hexText, err := base64.StdEncoding.DecodeString(masterKeyBase64)
	if err != nil {
		panic(fmt.Sprintf("jwcrypto: embedded master key base64: %v", err))
	}
	raw, err := hex.DecodeString(string(hexText))
	if err != nil {
		panic(fmt.Sprintf("jwcrypto: embedded master key hex: %v", err))
	}
	if len(raw) != 32 {
		panic(fmt.Sprintf("jwcrypto: embedded master key is %d bytes, want 32", len(raw)))
	}
	return raw
}
