package ports

import "github.com/keyproof/keyproof/core"

// Tokenizer converts sessions to and from bearer tokens
type Tokenizer interface {
	SessionToToken(session *core.Session) (string, error)
	TokenToSession(token string) (*core.Session, error)
}
