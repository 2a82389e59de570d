package crypto

// KeyService owns the client-side half of the zero-knowledge scheme: it
// turns a master password plus a public salt into two independent keys, of
// which only a one-way hash of the first ever crosses the network.
//
// Scheme:
//
//	salt              = GenerateSalt()                      (registration only)
//	authKey ‖ encKey  = DeriveKeys(password, salt)          (every login)
//	authHash          = HashAuthKey(authKey)                (sent to server)
//	encKey            stays in client memory, never leaves
type KeyService interface {
	// GenerateSalt produces a fresh 32-byte key-derivation salt from the
	// OS CSPRNG. Salts are public but immutable once registered.
	GenerateSalt() ([]byte, error)

	// DeriveKeys runs the slow KDF over password and salt and splits the
	// output into the authentication key and the encryption key. The same
	// inputs always reproduce the same pair.
	DeriveKeys(password string, salt []byte) (KeyPair, error)

	// HashAuthKey computes the one-way wire hash of the authentication
	// key. The server re-hashes this value with bcrypt before storing it,
	// so neither the wire value nor the stored value is the raw key.
	HashAuthKey(authKey []byte) []byte
}

// EnvelopeService is authenticated symmetric encryption of vault payloads
// under the client's encryption key. Ciphertext and IV travel as separate
// base64 fields.
type EnvelopeService interface {
	// Encrypt seals plaintext under encKey with a fresh random IV.
	Encrypt(plaintext, encKey []byte) (Envelope, error)

	// Decrypt opens an envelope. Any tampering with ciphertext or IV
	// surfaces as ErrDecryption, never as corrupted plaintext.
	Decrypt(ciphertextB64, ivB64 string, encKey []byte) ([]byte, error)
}

// GroupKeyService is the hybrid-encryption half of group sharing: random
// symmetric group keys wrapped per member under RSA-OAEP, so the group key
// can rotate without re-encrypting every member's view of the content.
type GroupKeyService interface {
	// GenerateGroupKey produces a random 32-byte symmetric group key.
	GenerateGroupKey() ([]byte, error)

	// GenerateUserKeyPair produces an RSA-2048 keypair as base64 DER blobs
	// (SPKI public, PKCS#8 private).
	GenerateUserKeyPair() (UserKeyPair, error)

	// EncryptGroupKeyForUser wraps groupKey under the member's public key.
	EncryptGroupKeyForUser(groupKey []byte, publicKeyB64 string) (string, error)

	// DecryptGroupKeyForUser unwraps a wrapped key with the matching
	// private key.
	DecryptGroupKeyForUser(wrappedKeyB64, privateKeyB64 string) ([]byte, error)

	// RotateGroupKey generates one fresh group key and wraps it for every
	// member. A single failed wrap aborts the whole rotation so no
	// inconsistent per-member key set can exist.
	RotateGroupKey(members []GroupMemberKey) (GroupKeySet, error)

	// ValidateGroupKey reports whether raw key material is a plausible
	// group key (exactly 32 bytes).
	ValidateGroupKey(groupKey []byte) bool

	// ValidatePublicKey reports whether a base64 blob is a plausible
	// RSA-2048 SPKI public key, rejecting junk before any RSA operation.
	ValidatePublicKey(publicKeyB64 string) bool
}
