package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
)

const (
	envelopeSlot  = "__encrypted__"
	envelopeType  = "encrypted"
	envelopeField = "ciphertext"
)

// ErrNotEncrypted is returned when a stored snapshot is not an envelope.
var ErrNotEncrypted = errors.New("snapshot is missing encrypted envelope")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey encrypts new snapshots. Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys are tried in order when ActiveKey cannot decrypt, so keys
	// can be rotated without rewriting the store.
	FallbackKeys [][]byte
}

type encryptionMiddleware struct {
	next   ports.DiagramStore
	config EncryptionConfig
}

// NewEncryptionMiddleware stores every snapshot as an AES-GCM sealed
// envelope. The envelope keeps only the diagram ID in the clear.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	if len(config.ActiveKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes, got %d", len(config.ActiveKey))
	}
	return func(next ports.DiagramStore) ports.DiagramStore {
		return &encryptionMiddleware{next: next, config: config}
	}, nil
}

func (m *encryptionMiddleware) Save(ctx context.Context, diagramID string, snap *domain.Snapshot) error {
	plain, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	sealed, err := seal(plain, m.config.ActiveKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt snapshot: %w", err)
	}

	envelope := &domain.Snapshot{
		ID: snap.ID,
		Nodes: []domain.NodeSnapshot{{
			SlotID: envelopeSlot,
			Type:   envelopeType,
			Fields: map[string]any{envelopeField: base64.StdEncoding.EncodeToString(sealed)},
		}},
		Connections: []domain.ConnectionSnapshot{},
	}
	return m.next.Save(ctx, diagramID, envelope)
}

func (m *encryptionMiddleware) Load(ctx context.Context, diagramID string) (*domain.Snapshot, error) {
	envelope, err := m.next.Load(ctx, diagramID)
	if err != nil {
		return nil, err
	}
	if len(envelope.Nodes) != 1 || envelope.Nodes[0].SlotID != envelopeSlot {
		return nil, fmt.Errorf("diagram %s: %w", diagramID, ErrNotEncrypted)
	}
	encoded, ok := envelope.Nodes[0].Fields[envelopeField].(string)
	if !ok {
		return nil, fmt.Errorf("diagram %s: %w", diagramID, ErrNotEncrypted)
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	plain, err := openWithRotation(sealed, m.config.ActiveKey, m.config.FallbackKeys)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(plain, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal decrypted snapshot: %w", err)
	}
	return &snap, nil
}

func (m *encryptionMiddleware) Delete(ctx context.Context, diagramID string) error {
	return m.next.Delete(ctx, diagramID)
}

func (m *encryptionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func seal(plaintext, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func openWithRotation(sealed, active []byte, fallbacks [][]byte) ([]byte, error) {
	for _, key := range append([][]byte{active}, fallbacks...) {
		if plain, err := open(sealed, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func open(sealed, key []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
