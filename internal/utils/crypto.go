package utils

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/testplan-ai/backend/pkg/logger"
	"golang.org/x/crypto/scrypt"
)

// DevEncryptionKey is used when no passphrase is configured. Tokens written
// with it are readable by anyone holding the source, so set ENCRYPTION_KEY.
const DevEncryptionKey = "dev-local-key-change-in-production!!"

// scrypt parameters and salt are fixed so existing tokens stay readable.
const (
	kdfSalt   = "salt"
	kdfN      = 16384
	kdfR      = 8
	kdfP      = 1
	kdfKeyLen = 32
)

var errMalformedToken = errors.New("malformed secret token")

// SecretCodec encrypts small secrets for at-rest storage with AES-256-CBC.
// Tokens have the form <ivHex>:<cipherHex>.
type SecretCodec struct {
	key []byte
}

// NewSecretCodec derives the key from passphrase. Derivation is slow on
// purpose; build one codec per process and share it.
func NewSecretCodec(passphrase string) (*SecretCodec, error) {
	if passphrase == "" {
		passphrase = DevEncryptionKey
	}
	key, err := scrypt.Key([]byte(passphrase), []byte(kdfSalt), kdfN, kdfR, kdfP, kdfKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive encryption key: %w", err)
	}
	return &SecretCodec{key: key}, nil
}

// Encrypt returns an empty token for empty plaintext.
func (c *SecretCodec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt never fails: empty, malformed or undecryptable tokens yield "".
func (c *SecretCodec) Decrypt(token string) string {
	if token == "" || !strings.Contains(token, ":") {
		return ""
	}
	plaintext, err := c.decrypt(token)
	if err != nil {
		logger.Warn().Err(err).Msg("[Crypto] Failed to decrypt stored secret")
		return ""
	}
	return plaintext
}

func (c *SecretCodec) decrypt(token string) (string, error) {
	ivHex, cipherHex, _ := strings.Cut(token, ":")

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != aes.BlockSize {
		return "", errMalformedToken
	}
	data, err := hex.DecodeString(cipherHex)
	if err != nil || len(data) == 0 || len(data)%aes.BlockSize != 0 {
		return "", errMalformedToken
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)

	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(unpadded) {
		return "", errMalformedToken
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errMalformedToken
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("bad padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("bad padding")
		}
	}
	return data[:len(data)-n], nil
}
