package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/keyproof/keyproof/core"
	"github.com/keyproof/keyproof/ports"
	"github.com/keyproof/keyproof/sigverify"
)

// DefaultChallengeTTL balances the user-interactive signing step
// (passkey prompt, wallet connect) against the replay window. A
// challenge is single-use, so a longer window costs little.
const DefaultChallengeTTL = 15 * time.Minute

// DefaultSessionTTL is how long a minted session token is valid. The
// external identity service exchanges it for long-lived credentials.
const DefaultSessionTTL = 5 * time.Minute

// DefaultAccountPreamble prefixes the hex challenge in the text an
// external chain account signs.
const DefaultAccountPreamble = "I authorize account recovery on keyproof.\nChallenge: "

// methodVerifier checks one recovery method's signature against a
// challenge and returns the proven subject.
type methodVerifier func(ctx context.Context, challenge *core.Challenge, req core.VerifyRequest) (string, error)

// RecoveryService issues one-time challenges and verifies signed ones,
// minting a session token on success.
type RecoveryService struct {
	store     ports.ChallengeStore
	keys      ports.KeyRegistry
	tokenizer ports.Tokenizer
	eventPub  ports.EventPublisher
	logger    *slog.Logger

	challengeTTL    time.Duration
	sessionTTL      time.Duration
	accountPreamble string

	now       func() time.Time
	verifiers map[core.RecoveryMethod]methodVerifier
}

// Option configures a RecoveryService
type Option func(*RecoveryService)

// WithChallengeTTL overrides the challenge expiry window
func WithChallengeTTL(ttl time.Duration) Option {
	return func(s *RecoveryService) { s.challengeTTL = ttl }
}

// WithSessionTTL overrides the session token lifetime
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *RecoveryService) { s.sessionTTL = ttl }
}

// WithAccountPreamble overrides the account-signature message preamble
func WithAccountPreamble(preamble string) Option {
	return func(s *RecoveryService) { s.accountPreamble = preamble }
}

// WithClock overrides the time source, for tests
func WithClock(now func() time.Time) Option {
	return func(s *RecoveryService) { s.now = now }
}

// WithLogger overrides the default logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *RecoveryService) { s.logger = logger }
}

// NewRecoveryService creates a new recovery service
func NewRecoveryService(
	store ports.ChallengeStore,
	keys ports.KeyRegistry,
	tokenizer ports.Tokenizer,
	eventPub ports.EventPublisher,
	opts ...Option,
) *RecoveryService {
	s := &RecoveryService{
		store:           store,
		keys:            keys,
		tokenizer:       tokenizer,
		eventPub:        eventPub,
		logger:          slog.Default(),
		challengeTTL:    DefaultChallengeTTL,
		sessionTTL:      DefaultSessionTTL,
		accountPreamble: DefaultAccountPreamble,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.verifiers = map[core.RecoveryMethod]methodVerifier{
		core.MethodPasskey:          s.verifyPasskey,
		core.MethodAccountSignature: s.verifyAccountSignature,
	}
	return s
}

// IssueChallenge generates a new challenge and persists it. The subject
// is optional; when present, any prior un-consumed challenge for the
// same subject is invalidated.
func (s *RecoveryService) IssueChallenge(ctx context.Context, subject string) (*core.ChallengeResponse, error) {
	payload := make([]byte, core.PayloadSize)
	if _, err := rand.Read(payload); err != nil {
		return nil, fmt.Errorf("failed to generate challenge payload: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Subject:   subject,
		Payload:   payload,
		CreatedAt: now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	if err := s.store.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist challenge: %w", err)
	}

	s.logger.Debug("challenge issued", "challenge_id", challenge.ID, "expires_at", challenge.ExpiresAt)

	return &core.ChallengeResponse{
		ID:        challenge.ID,
		Challenge: hexutil.Encode(payload),
	}, nil
}

// Lookup fetches the current challenge issued for a subject.
func (s *RecoveryService) Lookup(ctx context.Context, subject string) (*core.Challenge, error) {
	return s.store.GetBySubject(ctx, subject)
}

// IsUsable reports whether a challenge can still be verified. The error
// distinguishes a row that never existed from one that is expired or
// consumed.
func (s *RecoveryService) IsUsable(ctx context.Context, challengeID string) (bool, error) {
	challenge, err := s.store.Get(ctx, challengeID)
	if err != nil {
		return false, err
	}
	return challenge.Usable(s.now()), nil
}

// VerifySignature checks a signed challenge and mints a session token.
//
// The usability read and the consume write bracket the cryptographic
// check: consume is an atomic compare-and-set in the store, so of two
// racing calls with the same challenge exactly one mints a token and
// the other observes ErrChallengeConsumed. On any recoverable failure
// the challenge is left untouched and the client may retry with a
// corrected signature until it expires.
func (s *RecoveryService) VerifySignature(ctx context.Context, req core.VerifyRequest) (string, error) {
	challenge, err := s.store.Get(ctx, req.ChallengeID)
	if err != nil {
		return "", err
	}

	now := s.now()
	if challenge.ConsumedAt != nil {
		return "", core.ErrChallengeConsumed
	}
	if challenge.Expired(now) {
		return "", core.ErrChallengeExpired
	}

	verify, ok := s.verifiers[req.Method]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedMethod, req.Method)
	}

	subject, err := verify(ctx, challenge, req)
	if err != nil {
		s.logger.Info("verification rejected",
			"challenge_id", req.ChallengeID, "method", req.Method, "err", err)
		return "", err
	}

	if err := s.store.Consume(ctx, req.ChallengeID, now); err != nil {
		// Lost the race or the challenge aged out mid-check.
		return "", err
	}

	session := &core.Session{
		ID:        uuid.New().String(),
		Subject:   subject,
		Method:    req.Method,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", fmt.Errorf("failed to mint session token: %w", err)
	}

	if s.eventPub != nil {
		if err := s.eventPub.PublishRecovered(ctx, subject, req.Method, challenge.ID); err != nil {
			// The session is already minted; losing the event is not fatal.
			s.logger.Warn("failed to publish recovery event", "err", err)
		}
	}

	s.logger.Info("account recovered", "subject", subject, "method", req.Method)

	return token, nil
}

// ValidateSessionToken parses and validates a minted session token.
func (s *RecoveryService) ValidateSessionToken(ctx context.Context, token string) (*core.Session, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, err
	}
	if s.now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}
	return session, nil
}

// verifyPasskey checks a slot-prefixed P-256 signature against the key
// registered for the identifier's account and slot. The slot byte
// embedded in the signature must agree with the textual identifier.
func (s *RecoveryService) verifyPasskey(ctx context.Context, challenge *core.Challenge, req core.VerifyRequest) (string, error) {
	slot, sig, err := core.DecodeSlotSignature(req.Signature)
	if err != nil {
		return "", err
	}

	id, err := core.ParseIdentifier(req.Identifier)
	if err != nil {
		return "", err
	}
	if id.KeySlot != slot {
		return "", fmt.Errorf("%w: identifier names slot %d, signature embeds slot %d",
			core.ErrSignatureMismatch, id.KeySlot, slot)
	}

	coseKey, err := s.keys.PasskeyPublicKey(ctx, id)
	if err != nil {
		return "", err
	}
	pub, err := sigverify.ParseCOSEPublicKey(coseKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrSignatureMismatch, err)
	}

	if err := sigverify.VerifyPasskeySignature(pub, challenge.Payload, sig); err != nil {
		return "", err
	}

	return id.AccountName, nil
}

// verifyAccountSignature recovers the signer of a compact secp256k1
// signature and checks it against the address claimed as identifier.
func (s *RecoveryService) verifyAccountSignature(ctx context.Context, challenge *core.Challenge, req core.VerifyRequest) (string, error) {
	if !common.IsHexAddress(req.Identifier) {
		return "", fmt.Errorf("%w: %q is not a chain address", core.ErrInvalidIdentifier, req.Identifier)
	}
	claimed := common.HexToAddress(req.Identifier)

	if err := sigverify.VerifyAccountSignature(s.accountPreamble, challenge.Payload, req.Signature, claimed); err != nil {
		return "", err
	}

	// The session is minted for the account linked to the address, the
	// same resolution step the passkey path does through the identifier.
	account, err := s.keys.AccountByAddress(ctx, req.Identifier)
	if err != nil {
		return "", err
	}

	return account, nil
}

// IsTerminalError reports whether a verification failure can never be
// retried against the same challenge.
func IsTerminalError(err error) bool {
	return errors.Is(err, core.ErrChallengeNotFound) ||
		errors.Is(err, core.ErrChallengeExpired) ||
		errors.Is(err, core.ErrChallengeConsumed)
}
