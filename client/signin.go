package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/keyproof/keyproof/core"
)

// State tracks a single sign-in attempt
type State int

const (
	StateIdle State = iota
	StateChallengeRequested
	StateSigning
	StateVerifying
	StateAuthenticated
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChallengeRequested:
		return "challenge_requested"
	case StateSigning:
		return "signing"
	case StateVerifying:
		return "verifying"
	case StateAuthenticated:
		return "authenticated"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// User-facing messages. Verify-side failures all map to the generic
// one: distinguishing "wrong signature" from "expired challenge" to the
// user would also distinguish them to an attacker.
const (
	MsgAuthenticationFailed = "Authentication failed. Please try again."
	MsgSigningCancelled     = "Signing was cancelled or not allowed on this device."
)

// AuthClient is the server surface the flow talks to.
type AuthClient interface {
	IssueChallenge(ctx context.Context) (*core.ChallengeResponse, error)
	VerifySignature(ctx context.Context, req core.VerifyRequest) (string, error)
}

// SessionSink receives the minted session token. The external
// identity/session service sits behind this.
type SessionSink interface {
	AcceptSession(ctx context.Context, token string) error
}

// SignInFlow drives one sign-in attempt:
//
//	Idle -> ChallengeRequested -> Signing -> Verifying -> {Authenticated | Failed}
//
// Failed is terminal per attempt. A verify is never retried with the
// same challenge id — challenges are single-use — so a fresh attempt
// starts over with a new flow and a new challenge.
type SignInFlow struct {
	client AuthClient
	sink   SessionSink

	state       State
	userMessage string
}

// NewSignInFlow creates a flow in the Idle state
func NewSignInFlow(client AuthClient, sink SessionSink) *SignInFlow {
	return &SignInFlow{client: client, sink: sink, state: StateIdle}
}

// State returns the current attempt state
func (f *SignInFlow) State() State {
	return f.state
}

// UserMessage returns the message to surface after a failed attempt
func (f *SignInFlow) UserMessage() string {
	return f.userMessage
}

// Run executes the attempt with the chosen method encoder and returns
// the minted session token.
func (f *SignInFlow) Run(ctx context.Context, signer ChallengeSigner) (string, error) {
	if f.state != StateIdle {
		return "", fmt.Errorf("sign-in flow already ran (state %s)", f.state)
	}

	f.state = StateChallengeRequested
	challenge, err := f.client.IssueChallenge(ctx)
	if err != nil {
		return "", f.fail(MsgAuthenticationFailed, fmt.Errorf("request challenge: %w", err))
	}

	payload, err := hexutil.Decode(challenge.Challenge)
	if err != nil {
		return "", f.fail(MsgAuthenticationFailed, fmt.Errorf("decode challenge payload: %w", err))
	}

	f.state = StateSigning
	signature, identifier, err := signer.SignChallenge(ctx, payload)
	if err != nil {
		if errors.Is(err, core.ErrUserCancelled) {
			return "", f.fail(MsgSigningCancelled, err)
		}
		return "", f.fail(MsgAuthenticationFailed, err)
	}

	f.state = StateVerifying
	token, err := f.client.VerifySignature(ctx, core.VerifyRequest{
		Method:      signer.Method(),
		ChallengeID: challenge.ID,
		Identifier:  identifier,
		Signature:   signature,
	})
	if err != nil {
		return "", f.fail(MsgAuthenticationFailed, err)
	}

	if f.sink != nil {
		if err := f.sink.AcceptSession(ctx, token); err != nil {
			return "", f.fail(MsgAuthenticationFailed, fmt.Errorf("hand off session: %w", err))
		}
	}

	f.state = StateAuthenticated
	return token, nil
}

func (f *SignInFlow) fail(message string, err error) error {
	f.state = StateFailed
	f.userMessage = message
	return err
}
