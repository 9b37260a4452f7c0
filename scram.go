package mqttv5

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // SHA-1 required for SCRAM-SHA-1 compatibility
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// SCRAMHash represents the hash algorithm used for SCRAM authentication.
type SCRAMHash int

const (
	// SCRAMHashSHA1 uses SHA-1 (for legacy compatibility, not recommended for new deployments).
	SCRAMHashSHA1 SCRAMHash = iota
	// SCRAMHashSHA256 uses SHA-256 (recommended).
	SCRAMHashSHA256
	// SCRAMHashSHA512 uses SHA-512 (highest security).
	SCRAMHashSHA512
)

// String returns the MQTT auth method name for this hash.
func (h SCRAMHash) String() string {
	switch h {
	case SCRAMHashSHA1:
		return "SCRAM-SHA-1"
	case SCRAMHashSHA256:
		return "SCRAM-SHA-256"
	case SCRAMHashSHA512:
		return "SCRAM-SHA-512"
	default:
		return "SCRAM-SHA-256"
	}
}

func (h SCRAMHash) hashFunc() func() hash.Hash {
	switch h {
	case SCRAMHashSHA1:
		return sha1.New
	case SCRAMHashSHA256:
		return sha256.New
	case SCRAMHashSHA512:
		return sha512.New
	default:
		return sha256.New
	}
}

func (h SCRAMHash) keySize() int {
	switch h {
	case SCRAMHashSHA1:
		return 20
	case SCRAMHashSHA256:
		return 32
	case SCRAMHashSHA512:
		return 64
	default:
		return 32
	}
}

// ErrSCRAMInvalidExchange is returned when a SCRAM message from the broker
// cannot be parsed or fails verification.
var ErrSCRAMInvalidExchange = errors.New("invalid SCRAM exchange")

// scramClientState carries values between AuthStart and AuthContinue.
type scramClientState struct {
	username     string
	password     string
	clientNonce  string
	clientFirst  string
	saltedPass   []byte
	authMessage  string
	expectedSig  []byte
}

// SCRAMClientAuthenticator implements ClientEnhancedAuthenticator, driving
// the SCRAM challenge-response exchange from the client side of an MQTT
// enhanced authentication handshake (CONNECT/AUTH AuthenticationMethod
// "SCRAM-SHA-1", "SCRAM-SHA-256" or "SCRAM-SHA-512").
type SCRAMClientAuthenticator struct {
	hash     SCRAMHash
	username string
	password string
}

// NewSCRAMClientAuthenticator builds a client-side SCRAM authenticator for
// the given hash algorithm and credentials.
func NewSCRAMClientAuthenticator(hash SCRAMHash, username, password string) *SCRAMClientAuthenticator {
	return &SCRAMClientAuthenticator{hash: hash, username: username, password: password}
}

// AuthMethod implements ClientEnhancedAuthenticator.
func (a *SCRAMClientAuthenticator) AuthMethod() string {
	return a.hash.String()
}

// AuthStart builds the client-first-message sent as CONNECT's
// AuthenticationData property.
func (a *SCRAMClientAuthenticator) AuthStart(_ context.Context) (*ClientEnhancedAuthResult, error) {
	nonce, err := generateScramNonce()
	if err != nil {
		return nil, err
	}

	clientFirstBare := fmt.Sprintf("n=%s,r=%s", a.username, nonce)
	clientFirst := "n,," + clientFirstBare

	state := &scramClientState{
		username:    a.username,
		password:    a.password,
		clientNonce: nonce,
		clientFirst: clientFirstBare,
	}

	return &ClientEnhancedAuthResult{
		AuthData: []byte(clientFirst),
		State:    state,
	}, nil
}

// AuthContinue parses the server-first-message and replies with the
// client-final-message carrying the computed client proof.
func (a *SCRAMClientAuthenticator) AuthContinue(_ context.Context, authCtx *ClientEnhancedAuthContext) (*ClientEnhancedAuthResult, error) {
	state, ok := authCtx.State.(*scramClientState)
	if !ok || state == nil {
		return nil, ErrSCRAMInvalidExchange
	}

	serverFirst := string(authCtx.AuthData)
	serverNonce, saltB64, iterations := parseScramServerFirst(serverFirst)
	if serverNonce == "" || saltB64 == "" || iterations <= 0 || !strings.HasPrefix(serverNonce, state.clientNonce) {
		return nil, ErrSCRAMInvalidExchange
	}

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, ErrSCRAMInvalidExchange
	}

	hashFunc := a.hash.hashFunc()
	saltedPassword := pbkdf2.Key([]byte(state.password), salt, iterations, a.hash.keySize(), hashFunc)

	clientKeyHMAC := hmac.New(hashFunc, saltedPassword)
	clientKeyHMAC.Write([]byte("Client Key"))
	clientKey := clientKeyHMAC.Sum(nil)

	h := hashFunc()
	h.Write(clientKey)
	storedKey := h.Sum(nil)

	clientFinalWithoutProof := fmt.Sprintf("c=biws,r=%s", serverNonce)
	authMessage := fmt.Sprintf("%s,%s,%s", state.clientFirst, serverFirst, clientFinalWithoutProof)

	clientSigHMAC := hmac.New(hashFunc, storedKey)
	clientSigHMAC.Write([]byte(authMessage))
	clientSignature := clientSigHMAC.Sum(nil)

	clientProof := make([]byte, len(clientKey))
	for i := range clientKey {
		clientProof[i] = clientKey[i] ^ clientSignature[i]
	}

	serverKeyHMAC := hmac.New(hashFunc, saltedPassword)
	serverKeyHMAC.Write([]byte("Server Key"))
	serverKey := serverKeyHMAC.Sum(nil)

	expectedSigHMAC := hmac.New(hashFunc, serverKey)
	expectedSigHMAC.Write([]byte(authMessage))
	state.expectedSig = expectedSigHMAC.Sum(nil)

	clientFinal := fmt.Sprintf("%s,p=%s", clientFinalWithoutProof, base64.StdEncoding.EncodeToString(clientProof))

	return &ClientEnhancedAuthResult{
		Done:     true,
		AuthData: []byte(clientFinal),
		State:    state,
	}, nil
}

// VerifyServerFinal checks the server's "v=<signature>" verifier against the
// signature computed during AuthContinue, confirming the broker also knows
// the shared secret.
func (a *SCRAMClientAuthenticator) VerifyServerFinal(state any, serverFinal []byte) error {
	s, ok := state.(*scramClientState)
	if !ok || s == nil || s.expectedSig == nil {
		return ErrSCRAMInvalidExchange
	}
	_, sigB64 := splitScramField(string(serverFinal), "v=")
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return ErrSCRAMInvalidExchange
	}
	if !hmac.Equal(sig, s.expectedSig) {
		return ErrSCRAMInvalidExchange
	}
	return nil
}

func splitScramField(msg, prefix string) (rest, value string) {
	for _, part := range strings.Split(msg, ",") {
		if strings.HasPrefix(part, prefix) {
			return msg, part[len(prefix):]
		}
	}
	return msg, ""
}

// parseScramServerFirst extracts nonce, salt, and iteration count from a
// server-first-message: r=<nonce>,s=<salt>,i=<iterations>
func parseScramServerFirst(msg string) (nonce, saltB64 string, iterations int) {
	for _, part := range strings.Split(msg, ",") {
		if len(part) < 2 {
			continue
		}
		switch part[:2] {
		case "r=":
			nonce = part[2:]
		case "s=":
			saltB64 = part[2:]
		case "i=":
			fmt.Sscanf(part[2:], "%d", &iterations)
		}
	}
	return
}

func generateScramNonce() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
