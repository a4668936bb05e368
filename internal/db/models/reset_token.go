package models

import (
	"time"

	"github.com/foundry-core/foundry/internal/model"
)

// ResetToken field names.
const (
	ResetTokenFieldToken      = "token"
	ResetTokenFieldUsername   = "username"
	ResetTokenFieldExpiration = "expiration"
	ResetTokenFieldID         = "id"
)

// ResetTokenSchema is the field layout of a ResetToken. The token is the key.
var ResetTokenSchema = model.NewSchema("resetToken", ResetTokenFieldToken, //nolint:gochecknoglobals
	model.Field{Name: ResetTokenFieldToken, Type: model.TypeString},
	model.Field{Name: ResetTokenFieldUsername, Type: model.TypeString},
	model.Field{Name: ResetTokenFieldExpiration, Type: model.TypeInteger},
	model.Field{Name: ResetTokenFieldID, Type: model.TypeString},
)

// ResetToken is a one time password reset credential.
type ResetToken struct {
	model.Base
}

// NewResetToken returns an empty reset token.
func NewResetToken() *ResetToken {
	return &ResetToken{Base: model.NewBase(ResetTokenSchema)}
}

// NewResetTokenModel is a model.Factory for reset tokens.
func NewResetTokenModel() model.Model {
	return NewResetToken()
}

// TableName is the collection reset tokens are stored in.
func (*ResetToken) TableName() string {
	return "reset_tokens"
}

// Token returns the secret token value.
func (t *ResetToken) Token() string { return t.Text(ResetTokenFieldToken) }

// SetToken sets the secret token value.
func (t *ResetToken) SetToken(v string) { t.MustSet(ResetTokenFieldToken, v) }

// Username returns the account the token resets.
func (t *ResetToken) Username() string { return t.Text(ResetTokenFieldUsername) }

// SetUsername sets the account the token resets.
func (t *ResetToken) SetUsername(v string) { t.MustSet(ResetTokenFieldUsername, v) }

// Expiration returns the expiry as epoch seconds.
func (t *ResetToken) Expiration() int64 { return t.Int(ResetTokenFieldExpiration) }

// SetExpiration sets the expiry as epoch seconds.
func (t *ResetToken) SetExpiration(v int64) { t.MustSet(ResetTokenFieldExpiration, v) }

// ID returns the row identifier.
func (t *ResetToken) ID() string { return t.Text(ResetTokenFieldID) }

// SetID sets the row identifier.
func (t *ResetToken) SetID(v string) { t.MustSet(ResetTokenFieldID, v) }

// Expired reports whether the token is expired at now.
func (t *ResetToken) Expired(now time.Time) bool {
	return now.Unix() >= t.Expiration()
}
