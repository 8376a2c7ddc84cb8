package photo

import "io"

// Encryptor protects database backups before they leave the machine.
// Encryption uses the public key only; decryption requires a passphrase to
// unlock the private key, producing a DecryptionContext for the session.
type Encryptor interface {
	// Setup performs one-time key generation: stores the public key in
	// plaintext and the private key encrypted with the passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase and returns a
	// DecryptionContext valid for the duration of the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether the key material exists.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory. It is created
// by Encryptor.Unlock and never written to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
