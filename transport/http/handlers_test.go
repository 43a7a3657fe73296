package http

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	cryptorand "crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyproof/keyproof/adapters/keys"
	"github.com/keyproof/keyproof/adapters/store"
	"github.com/keyproof/keyproof/adapters/tokenizer"
	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/service"
	"github.com/keyproof/keyproof/sigverify"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router   *gin.Engine
	registry *keys.MemoryRegistry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), cryptorand.Reader)
	require.NoError(t, err)

	registry := keys.NewMemoryRegistry()
	svc := service.NewRecoveryService(
		store.NewMemoryStore(),
		registry,
		tokenizer.NewJWTTokenizer(signKey),
		nil,
	)
	return &testServer{router: SetupRouter(svc), registry: registry}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func enrollPasskey(t *testing.T, registry *keys.MemoryRegistry, account string, slot uint8) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), cryptorand.Reader)
	require.NoError(t, err)
	cose, err := sigverify.MarshalCOSEPublicKey(&key.PublicKey)
	require.NoError(t, err)
	registry.RegisterPasskey(core.Identifier{AccountName: account, KeySlot: slot}, cose)
	return key
}

func signHex(t *testing.T, key *ecdsa.PrivateKey, challengeHex string, slot uint8) string {
	t.Helper()
	payload, err := hexutil.Decode(challengeHex)
	require.NoError(t, err)
	digest := sha256.Sum256(payload)
	der, err := ecdsa.SignASN1(cryptorand.Reader, key, digest[:])
	require.NoError(t, err)
	sig, err := sigverify.NormalizeDERSignature(der)
	require.NoError(t, err)
	return hexutil.Encode(core.EncodeSlotSignature(slot, sig))
}

func TestChallengeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/recovery/challenge", gin.H{"subject": "alice"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody(t, w)
	assert.NotEmpty(t, body["id"])
	payload, err := hexutil.Decode(body["challenge"])
	require.NoError(t, err)
	assert.Len(t, payload, core.PayloadSize)
}

func TestChallengeEndpointNoBody(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/recovery/challenge", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decodeBody(t, w)["id"])
}

func TestVerifyEndpointRoundTrip(t *testing.T) {
	s := newTestServer(t)
	key := enrollPasskey(t, s.registry, "bob", 7)

	challenge := decodeBody(t, s.do(t, http.MethodPost, "/recovery/challenge", gin.H{"subject": "bob"}, nil))

	w := s.do(t, http.MethodPost, "/recovery/verify", gin.H{
		"method":       core.MethodPasskey.String(),
		"challenge_id": challenge["id"],
		"identifier":   "bob.7",
		"signature":    signHex(t, key, challenge["challenge"], 7),
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	token := decodeBody(t, w)["token"]
	require.NotEmpty(t, token)

	me := s.do(t, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, me.Code)
	meBody := decodeBody(t, me)
	assert.Equal(t, "bob", meBody["subject"])
	assert.Equal(t, core.MethodPasskey.String(), meBody["method"])
}

// All verify-side rejections share one opaque body so callers cannot
// probe which check failed.
func TestVerifyEndpointOpaqueRejection(t *testing.T) {
	s := newTestServer(t)
	key := enrollPasskey(t, s.registry, "bob", 7)

	challenge := decodeBody(t, s.do(t, http.MethodPost, "/recovery/challenge", gin.H{"subject": "bob"}, nil))
	goodSig := signHex(t, key, challenge["challenge"], 7)

	rogue, err := ecdsa.GenerateKey(elliptic.P256(), cryptorand.Reader)
	require.NoError(t, err)

	cases := []struct {
		name string
		req  gin.H
	}{
		{
			name: "wrong key",
			req: gin.H{
				"method":       core.MethodPasskey.String(),
				"challenge_id": challenge["id"],
				"identifier":   "bob.7",
				"signature":    signHex(t, rogue, challenge["challenge"], 7),
			},
		},
		{
			name: "unknown identifier",
			req: gin.H{
				"method":       core.MethodPasskey.String(),
				"challenge_id": challenge["id"],
				"identifier":   "mallory.7",
				"signature":    goodSig,
			},
		},
		{
			name: "unknown challenge",
			req: gin.H{
				"method":       core.MethodPasskey.String(),
				"challenge_id": "11111111-2222-3333-4444-555555555555",
				"identifier":   "bob.7",
				"signature":    goodSig,
			},
		},
		{
			name: "unsupported method",
			req: gin.H{
				"method":       "SMS_CODE",
				"challenge_id": challenge["id"],
				"identifier":   "bob.7",
				"signature":    goodSig,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/recovery/verify", tc.req, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, genericAuthError, decodeBody(t, w)["error"])
		})
	}
}

func TestVerifyEndpointSingleUse(t *testing.T) {
	s := newTestServer(t)
	key := enrollPasskey(t, s.registry, "bob", 0)

	challenge := decodeBody(t, s.do(t, http.MethodPost, "/recovery/challenge", gin.H{"subject": "bob"}, nil))
	req := gin.H{
		"method":       core.MethodPasskey.String(),
		"challenge_id": challenge["id"],
		"identifier":   "bob.0",
		"signature":    signHex(t, key, challenge["challenge"], 0),
	}

	first := s.do(t, http.MethodPost, "/recovery/verify", req, nil)
	require.Equal(t, http.StatusOK, first.Code)

	second := s.do(t, http.MethodPost, "/recovery/verify", req, nil)
	assert.Equal(t, http.StatusUnauthorized, second.Code)
	assert.Equal(t, genericAuthError, decodeBody(t, second)["error"])
}

func TestVerifyEndpointBadRequests(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/recovery/verify", gin.H{"method": core.MethodPasskey.String()}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/recovery/verify", gin.H{
		"method":       core.MethodPasskey.String(),
		"challenge_id": "some-id",
		"identifier":   "bob.0",
		"signature":    "zz-not-hex",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedEndpointRejectsBadTokens(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/me", nil, map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
