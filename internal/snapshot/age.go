package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

const encryptedSuffix = ".age"

// AgeEncryptor encrypts snapshots to a fixed set of X25519 recipients.
type AgeEncryptor struct {
	recipients []age.Recipient
}

// NewAgeEncryptor parses "age1..." recipient strings.
func NewAgeEncryptor(recipients []string) (*AgeEncryptor, error) {
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no age recipients configured")
	}
	parsed, err := age.ParseRecipients(strings.NewReader(strings.Join(recipients, "\n")))
	if err != nil {
		return nil, fmt.Errorf("parsing age recipients: %w", err)
	}
	return &AgeEncryptor{recipients: parsed}, nil
}

// Encrypt reads plaintext from r and writes age ciphertext to w.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	encWriter, err := age.Encrypt(w, e.recipients...)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// AgeDecryptor holds identities loaded from an identity file.
type AgeDecryptor struct {
	identities []age.Identity
}

// LoadAgeDecryptor reads an age identity file (as written by GenerateIdentity
// or age-keygen).
func LoadAgeDecryptor(identityPath string) (*AgeDecryptor, error) {
	data, err := os.ReadFile(identityPath)
	if err != nil {
		return nil, fmt.Errorf("reading identity file: %w", err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing identity file: %w", err)
	}
	return &AgeDecryptor{identities: identities}, nil
}

// Decrypt reads age ciphertext from r and writes plaintext to w.
func (d *AgeDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	decReader, err := age.Decrypt(r, d.identities...)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}

// GenerateIdentity writes a new X25519 identity to identityPath (mode 0600,
// refusing to overwrite) and returns its recipient string for the config.
func GenerateIdentity(identityPath string) (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating key pair: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(identityPath), 0700); err != nil {
		return "", fmt.Errorf("creating identity directory: %w", err)
	}

	f, err := os.OpenFile(identityPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating identity file: %w", err)
	}
	defer f.Close()

	recipient := identity.Recipient().String()
	content := fmt.Sprintf("# public key: %s\n%s\n", recipient, identity.String())
	if _, err := io.WriteString(f, content); err != nil {
		return "", fmt.Errorf("writing identity file: %w", err)
	}
	return recipient, nil
}
