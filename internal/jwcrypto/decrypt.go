package jwcrypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/zlib"
)

var (
	// ErrCrypto reports a cipher-level failure: input not block-aligned or
	// invalid PKCS#7 padding after decryption.
	ErrCrypto = errors.New("decrypt failed")
	// ErrInflate reports a corrupt zlib stream. Since the cipher carries no
	// integrity tag, this is the practical signal that the wrong key was
	// derived.
	ErrInflate = errors.New("inflate failed")
)

// maxInflatedBytes bounds decompressed document size; a real document is a few
// hundred KiB of HTML.
const maxInflatedBytes = 64 << 20

// DecryptInflate decrypts an encrypted document blob with AES-128-CBC using
// the derived secret, strips PKCS#7 padding, decompresses the plaintext as a
// zlib stream, and decodes the result as UTF-8 HTML.
func DecryptInflate(encrypted []byte, secret Secret) (string, error) {
	if len(encrypted) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrCrypto)
	}
	if len(encrypted)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: %d bytes is not a multiple of the AES block size", ErrCrypto, len(encrypted))
	}

	block, err := aes.NewCipher(secret.Key[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCrypto, err)
	}

	plaintext := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, secret.IV[:]).CryptBlocks(plaintext, encrypted)

	plaintext, err = stripPKCS7(plaintext)
	if err != nil {
		return "", err
	}

	reader, err := zlib.NewReader(bytes.NewReader(plaintext))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInflate, err)
	}
	defer reader.Close()

	inflated, err := io.ReadAll(io.LimitReader(reader, maxInflatedBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInflate, err)
	}
	if !utf8.Valid(inflated) {
		return "", fmt.Errorf("%w: inflated document is not valid UTF-8", ErrInflate)
	}
	return string(inflated), nil
}

func stripPKCS7(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plaintext", ErrCrypto)
	}
	pad := int(data[len(data)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(data) {
		return nil, fmt.Errorf("%w: invalid padding", ErrCrypto)
	}
	for _, b := range data[len(data)-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: invalid padding", ErrCrypto)
		}
	}
	return data[:len(data)-pad], nil
}
