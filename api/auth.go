package api

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ruteri/transcript-registry-backend/interfaces"
)

// Write requests carry the caller's wallet address, the signing time and a
// secp256k1 signature over the request.
const (
	CallerAddressHeader   = "X-Caller-Address"
	CallerTimestampHeader = "X-Caller-Timestamp"
	CallerSignatureHeader = "X-Caller-Signature"
)

// DefaultMaxClockSkew is how far a signing timestamp may be from the server clock.
const DefaultMaxClockSkew = 5 * time.Minute

var (
	ErrMissingSignature = errors.New("missing request signature")
	ErrInvalidSignature = errors.New("invalid request signature")
	ErrStaleSignature   = errors.New("request signature outside the accepted time window")
)

// SigningDigest returns the EIP-191 personal message hash of
// "<METHOD> <path>\n<unix timestamp>\n<body>", so wallets can sign it with personal_sign.
func SigningDigest(method, path string, timestamp int64, body []byte) []byte {
	msg := fmt.Appendf(nil, "%s %s\n%d\n", method, path, timestamp)
	return accounts.TextHash(append(msg, body...))
}

// SignRequest sets the caller headers on req. body must be the exact bytes req sends.
func SignRequest(req *http.Request, body []byte, key *ecdsa.PrivateKey, now time.Time) error {
	ts := now.Unix()
	sig, err := crypto.Sign(SigningDigest(req.Method, req.URL.Path, ts, body), key)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}
	req.Header.Set(CallerAddressHeader, crypto.PubkeyToAddress(key.PublicKey).Hex())
	req.Header.Set(CallerTimestampHeader, strconv.FormatInt(ts, 10))
	req.Header.Set(CallerSignatureHeader, hexutil.Encode(sig))
	return nil
}

// RecoverCaller authenticates a signed request and returns the caller address.
// The body is read in full and restored for later handlers.
func RecoverCaller(r *http.Request, now time.Time, maxSkew time.Duration) (common.Address, error) {
	addrHeader := r.Header.Get(CallerAddressHeader)
	tsHeader := r.Header.Get(CallerTimestampHeader)
	sigHeader := r.Header.Get(CallerSignatureHeader)
	if addrHeader == "" || tsHeader == "" || sigHeader == "" {
		return common.Address{}, ErrMissingSignature
	}

	claimed, err := interfaces.ParseAddress(addrHeader)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: caller address: %w", ErrInvalidSignature, err)
	}
	ts, err := strconv.ParseInt(tsHeader, 10, 64)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: timestamp: %w", ErrInvalidSignature, err)
	}
	if skew := now.Sub(time.Unix(ts, 0)); skew > maxSkew || skew < -maxSkew {
		return common.Address{}, ErrStaleSignature
	}

	sig, err := hexutil.Decode(sigHeader)
	if err != nil || len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}
	// Wallets produce v as 27/28.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return common.Address{}, fmt.Errorf("could not read request body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	pub, err := crypto.SigToPub(SigningDigest(r.Method, r.URL.Path, ts, body), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	if signer := crypto.PubkeyToAddress(*pub); signer != claimed {
		return common.Address{}, fmt.Errorf("%w: signed by %s, not %s", ErrInvalidSignature, signer.Hex(), claimed.Hex())
	}
	return claimed, nil
}
