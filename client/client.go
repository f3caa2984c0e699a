package client

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/halvard/ddbexpr/compiler"
	"github.com/halvard/ddbexpr/entity"
)

// Client issues single-item and single-table requests built from
// compiled expressions.
type Client struct {
	awsddb AWSDynamoClientV2
	log    zerolog.Logger
	enc    compiler.Encryptor
}

// Option configures a Client.
type Option func(*Client)

// WithLogger injects the diagnostics logger. Only redacted expression
// views are ever written to it.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithEncryptor injects the encryption collaborator. Without it, any
// write touching an encrypted property fails before the network call.
func WithEncryptor(enc compiler.Encryptor) Option {
	return func(c *Client) { c.enc = enc }
}

// New wraps an SDK client.
func New(awsddb AWSDynamoClientV2, opts ...Option) *Client {
	c := &Client{awsddb: awsddb, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key identifies one item of an entity by its primary key values.
// Values run the same coercion pipeline as every other literal, so a
// formatted key matches how it was written.
type Key struct {
	meta      *entity.Metadata
	partition any
	sort      any
}

// NewKey builds a key from partition and (optional) sort values.
func NewKey(meta *entity.Metadata, partition, sort any) Key {
	return Key{meta: meta, partition: partition, sort: sort}
}

// DDB renders the key in wire form.
func (k Key) DDB() (map[string]types.AttributeValue, error) {
	pk := k.meta.PartitionKey()
	if pk == nil {
		return nil, fmt.Errorf("entity %q has no partition key", k.meta.TableName())
	}
	pav, err := compiler.Coerce(pk, k.partition)
	if err != nil {
		return nil, fmt.Errorf("partition key: %w", err)
	}
	out := map[string]types.AttributeValue{pk.Attribute: pav}
	sk := k.meta.SortKey()
	if sk == nil {
		if k.sort != nil {
			return nil, fmt.Errorf("entity %q has no sort key, got value %v", k.meta.TableName(), k.sort)
		}
		return out, nil
	}
	if k.sort == nil {
		return nil, fmt.Errorf("sort key %q is required", sk.Name)
	}
	sav, err := compiler.Coerce(sk, k.sort)
	if err != nil {
		return nil, fmt.Errorf("sort key: %w", err)
	}
	out[sk.Attribute] = sav
	return out, nil
}
