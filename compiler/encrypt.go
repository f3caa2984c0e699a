package compiler

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/halvard/ddbexpr/entity"
)

// Encryptor is the external encryption collaborator. The compiler only
// decides which values need it and in what order; implementations own
// key management and ciphertext format.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte, property string, encryptionContext map[string]string) ([]byte, error)
}

// PendingEncryption is one deferred encryption task: a value placeholder
// whose plaintext must be replaced by ciphertext before transmission.
type PendingEncryption struct {
	Token     string
	Property  string
	Attribute string
	Plaintext []byte
}

// allocateEncrypted reserves a placeholder for an encrypted property.
// The value table temporarily holds the plaintext; ResolveEncryption
// patches it. Encrypted placeholders are never de-duplicated.
func allocateEncrypted(ph *placeholders, p *entity.Property, v any) (string, PendingEncryption, error) {
	plaintext, err := plaintextBytes(p, v)
	if err != nil {
		return "", PendingEncryption{}, err
	}
	tok := ph.value(Param{
		Value:              &types.AttributeValueMemberB{Value: plaintext},
		Property:           p.Name,
		Attribute:          p.Attribute,
		RequiresEncryption: true,
		Sensitive:          true, // encrypted implies never logged in clear
	})
	return tok, PendingEncryption{
		Token:     tok,
		Property:  p.Name,
		Attribute: p.Attribute,
		Plaintext: plaintext,
	}, nil
}

func plaintextBytes(p *entity.Property, v any) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return []byte(val), nil
	case []byte:
		return val, nil
	default:
		return nil, fmt.Errorf("%w: encrypted property %q requires string or []byte plaintext, got %T", ErrTypeMismatch, p.Name, v)
	}
}

// ResolveEncryption runs every pending task through the provider and
// patches the value table with the ciphertexts. A nil provider with
// outstanding tasks fails the whole request before any network call.
func (c *Compiled) ResolveEncryption(ctx context.Context, enc Encryptor) error {
	if len(c.Pending) == 0 {
		return nil
	}
	if enc == nil {
		return fmt.Errorf("%w: property %q requires encryption", ErrMissingEncryptionProvider, c.Pending[0].Property)
	}
	for _, task := range c.Pending {
		ciphertext, err := enc.Encrypt(ctx, task.Plaintext, task.Property, map[string]string{
			"attribute": task.Attribute,
		})
		if err != nil {
			return fmt.Errorf("encrypt %q: %w", task.Property, err)
		}
		av := &types.AttributeValueMemberB{Value: ciphertext}
		c.Values[task.Token] = av
		for i := range c.Params {
			if c.Params[i].Token == task.Token {
				c.Params[i].Value = av
			}
		}
	}
	c.Pending = nil
	return nil
}
