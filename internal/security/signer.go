// Package security signs score tables so a consumer can check that a
// published result was produced by a known scorer key.
package security

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/yourorg/wallet-credit-score/internal/model"
)

// Algorithm names the digest and signature scheme of an Attestation
const Algorithm = "secp256k1-keccak256"

// ErrBadSignature is returned when an attestation does not match its payload
var ErrBadSignature = errors.New("signature verification failed")

// Attestation is a detached signature over a payload
type Attestation struct {
	Algorithm string `json:"algorithm"`
	Keccak256 string `json:"keccak256"`
	SHA256    string `json:"sha256"`
	Signature string `json:"signature"`
	Signer    string `json:"signer"`
	PublicKey string `json:"public_key"`
	SignedAt  int64  `json:"signed_at"`
	Records   int    `json:"records,omitempty"`
}

// Signer holds the scorer's signing key
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	now        func() time.Time
}

// NewSigner loads a hex private key, or generates an ephemeral one when
// keyHex is empty.
func NewSigner(keyHex string) (*Signer, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)
	if keyHex == "" {
		key, err = crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
		logrus.Warn("No signing key configured, using an ephemeral key")
	} else {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse signing key: %w", err)
		}
	}

	s := &Signer{
		privateKey: key,
		address:    crypto.PubkeyToAddress(key.PublicKey),
		now:        time.Now,
	}
	logrus.Infof("Report signer initialized with address %s", s.address.Hex())
	return s, nil
}

// Address returns the Ethereum address of the signing key
func (s *Signer) Address() common.Address {
	return s.address
}

// Sign produces an attestation over payload
func (s *Signer) Sign(payload []byte) (*Attestation, error) {
	hash := crypto.Keccak256Hash(payload)
	sig, err := crypto.Sign(hash.Bytes(), s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}

	sha := sha256.Sum256(payload)
	return &Attestation{
		Algorithm: Algorithm,
		Keccak256: hash.Hex(),
		SHA256:    hexutil.Encode(sha[:]),
		Signature: hexutil.Encode(sig),
		Signer:    s.address.Hex(),
		PublicKey: hexutil.Encode(crypto.FromECDSAPub(&s.privateKey.PublicKey)),
		SignedAt:  s.now().Unix(),
	}, nil
}

// SignRecords signs the canonical score table of records
func (s *Signer) SignRecords(records []model.ScoreRecord) (*Attestation, error) {
	att, err := s.Sign(ScoreTable(records))
	if err != nil {
		return nil, err
	}
	att.Records = len(records)
	return att, nil
}

// Verify checks that att is a valid signature over payload by att.Signer
func Verify(payload []byte, att *Attestation) error {
	if att == nil {
		return fmt.Errorf("%w: missing attestation", ErrBadSignature)
	}
	if att.Algorithm != Algorithm {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrBadSignature, att.Algorithm)
	}

	hash := crypto.Keccak256Hash(payload)
	if hash.Hex() != att.Keccak256 {
		return fmt.Errorf("%w: digest mismatch", ErrBadSignature)
	}

	sig, err := hexutil.Decode(att.Signature)
	if err != nil {
		return fmt.Errorf("%w: bad signature encoding: %v", ErrBadSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return fmt.Errorf("%w: invalid signature length %d", ErrBadSignature, len(sig))
	}

	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if !strings.EqualFold(crypto.PubkeyToAddress(*pub).Hex(), att.Signer) {
		return fmt.Errorf("%w: signer mismatch", ErrBadSignature)
	}

	// recovery id is not part of the plain signature check
	if !crypto.VerifySignature(crypto.FromECDSAPub(pub), hash.Bytes(), sig[:crypto.RecoveryIDOffset]) {
		return ErrBadSignature
	}
	return nil
}

// VerifyRecords verifies an attestation produced by SignRecords
func VerifyRecords(records []model.ScoreRecord, att *Attestation) error {
	return Verify(ScoreTable(records), att)
}

// ScoreTable renders records as the canonical "wallet_id,score" lines that
// are hashed for signing.
func ScoreTable(records []model.ScoreRecord) []byte {
	var buf bytes.Buffer
	buf.WriteString("wallet_id,score\n")
	for _, r := range records {
		buf.WriteString(r.WalletID)
		buf.WriteByte(',')
		buf.WriteString(strconv.Itoa(r.Score))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}
