package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Sign signs msg as an ethereum personal message, the way browser wallets do.
func Sign(privatekey string, msg []byte) ([]byte, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privatekey, "0x"))
	if err != nil {
		return nil, err
	}
	sig, err := crypto.Sign(accounts.TextHash(msg), privateKey)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverAddress returns the address that produced sig for msg.
func RecoverAddress(sig []byte, msg []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(sig))
	}
	s := make([]byte, len(sig))
	copy(s, sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(msg), s)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// ToPublic converts private key to public key
func ToPublic(priv string) (string, *ecdsa.PublicKey, error) {
	priv = strings.TrimPrefix(strings.TrimSpace(priv), "0x")
	if priv == "" {
		return "", nil, fmt.Errorf("invalid private key")
	}

	privateKey, err := crypto.HexToECDSA(priv)
	if err != nil {
		return "", nil, err
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return "", nil, fmt.Errorf("cannot assert type: publicKey is not of type *ecdsa.PublicKey")
	}

	publicKeyBytes := crypto.FromECDSAPub(publicKeyECDSA)
	publicK := hexutil.Encode(publicKeyBytes)[4:]
	return publicK, publicKeyECDSA, nil
}
