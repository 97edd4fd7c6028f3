// Package keys models the key layers the transfer path consumes:
// ephemeral session keys per transfer, a shared room key derived from
// the room id and password, and a long-lived identity keypair. The
// coordinator itself only ever handles hashes and opaque public keys.
package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/pbkdf2"
)

const (
	roomIDLength    = 9
	shortHashLength = 6
	sessionKeySize  = 32
	roomKeySize     = 32
	pbkdf2Iters     = 100000
)

const roomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var ErrTampered = errors.New("ciphertext rejected, key mismatch or tampered data")

// NewRoomID returns a random 9-character alphanumeric room identifier.
func NewRoomID() (string, error) {
	raw := make([]byte, roomIDLength)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	id := make([]byte, roomIDLength)
	for i, b := range raw {
		id[i] = roomIDAlphabet[int(b)%len(roomIDAlphabet)]
	}
	return string(id), nil
}

// ShortHash derives the fixed 6-character identity hash shown next to a
// display name. Salt makes two peers with the same name distinct.
func ShortHash(displayName, salt string) string {
	sum := sha256.Sum256([]byte(displayName + salt))
	return hex.EncodeToString(sum[:])[:shortHashLength]
}

// HashPassword is the stored form of a room password.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// VerifyPassword checks a cleartext password against a stored hash in
// constant time.
func VerifyPassword(password, passwordHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashPassword(password)), []byte(passwordHash)) == 1
}

// NewChallenge returns a random hex nonce for the admission handshake.
func NewChallenge() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// ComputeProof is evaluated client-side over the locally hashed
// password: proof = sha256(hex(sha256(password)) || nonce). The
// password itself never crosses the wire.
func ComputeProof(password, nonce string) string {
	return proofOf(HashPassword(password), nonce)
}

// VerifyProof recomputes the proof from the stored password hash and
// compares in constant time. This is a salted-hash challenge, not a
// cryptographic zero-knowledge proof.
func VerifyProof(proof, passwordHash, nonce string) bool {
	expected := proofOf(passwordHash, nonce)
	return subtle.ConstantTimeCompare([]byte(proof), []byte(expected)) == 1
}

func proofOf(passwordHash, nonce string) string {
	sum := sha256.Sum256([]byte(passwordHash + nonce))
	return hex.EncodeToString(sum[:])
}

// DeriveRoomKey stretches the room password into the shared room key.
// The room id doubles as the salt so every member derives the same key
// without additional exchange; password-less rooms fall back to the id.
func DeriveRoomKey(roomID, password string) []byte {
	salt := sha256.Sum256([]byte(roomID))
	secret := password
	if secret == "" {
		secret = roomID
	}
	return pbkdf2.Key([]byte(secret), salt[:], pbkdf2Iters, roomKeySize, sha256.New)
}

// NewSessionKey returns a fresh per-transfer key. Callers discard it
// when the transfer ends.
func NewSessionKey() ([]byte, error) {
	key := make([]byte, sessionKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// SealChunk encrypts one chunk under a session or room key with
// ChaCha20-Poly1305. The random nonce is prepended to the ciphertext.
func SealChunk(key, chunk []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return aead.Seal(nonce, nonce, chunk, nil), nil
}

// OpenChunk reverses SealChunk.
func OpenChunk(key, sealed []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, ErrTampered
	}
	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrTampered
	}
	return plain, nil
}

// Identity is the long-lived keypair a peer signs transfers with.
type Identity struct {
	private *rsa.PrivateKey
}

func NewIdentity(bits int) (*Identity, error) {
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, err
	}
	return &Identity{private: key}, nil
}

func (id *Identity) PublicKeyPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(&id.private.PublicKey)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

func (id *Identity) Sign(data []byte) ([]byte, error) {
	sum := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, id.private, crypto.SHA256, sum[:])
}

// VerifySignature checks data against a PEM-encoded public key.
func VerifySignature(publicKeyPEM, data, signature []byte) error {
	block, _ := pem.Decode(publicKeyPEM)
	if block == nil {
		return errors.New("invalid public key PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("unexpected public key type %T", pub)
	}
	sum := sha256.Sum256(data)
	return rsa.VerifyPKCS1v15(rsaPub, crypto.SHA256, sum[:], signature)
}

// HashChain links chunk hashes so a receiver detects reordering or
// tampering mid-transfer: hash[i] = sha256(hash[i-1] || chunk[i]).
func HashChain(chunks [][]byte) []string {
	hashes := make([]string, 0, len(chunks))
	previous := []byte("0")
	for _, chunk := range chunks {
		sum := sha256.Sum256(append(append([]byte{}, previous...), chunk...))
		h := hex.EncodeToString(sum[:])
		hashes = append(hashes, h)
		previous = sum[:]
	}
	return hashes
}

// VerifyChainLink checks one received chunk against the expected chain
// entry given the previous link (hex, or "0" for the first chunk).
func VerifyChainLink(chunk []byte, expected, previousHex string) bool {
	previous := []byte(previousHex)
	if decoded, err := hex.DecodeString(previousHex); err == nil && previousHex != "0" {
		previous = decoded
	}
	sum := sha256.Sum256(append(append([]byte{}, previous...), chunk...))
	return hex.EncodeToString(sum[:]) == expected
}
