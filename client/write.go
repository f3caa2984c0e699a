package client

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/halvard/ddbexpr/compiler"
	"github.com/halvard/ddbexpr/entity"
	"github.com/halvard/ddbexpr/predicate"
)

// Put assembles a full item write. Property values run the same
// coercion pipeline as query literals, which is what keeps formatted
// values byte-for-byte comparable between the write and query paths.
type Put struct {
	meta   *entity.Metadata
	values map[string]any
	conds  []predicate.Node
}

// NewPut starts a put for the given entity.
func NewPut(meta *entity.Metadata) *Put {
	return &Put{meta: meta, values: make(map[string]any)}
}

// Value sets one property value.
func (p *Put) Value(property string, v any) *Put {
	p.values[property] = v
	return p
}

// Where adds a condition guarding the write.
func (p *Put) Where(n predicate.Node) *Put {
	p.conds = append(p.conds, n)
	return p
}

// PutItem writes the item, stamping exact-match discriminator values
// and validating pattern-based ones against the written attributes.
func (c *Client) PutItem(ctx context.Context, p *Put) error {
	item, err := c.buildItem(ctx, p.meta, p.values)
	if err != nil {
		return err
	}
	input := &dynamodb.PutItemInput{
		TableName: ptr(p.meta.TableName()),
		Item:      item,
	}
	if len(p.conds) > 0 {
		cc := compiler.New(p.meta)
		for _, cond := range p.conds {
			cc = cc.Where(cond)
		}
		compiled, err := cc.Build()
		if err != nil {
			return err
		}
		input.ConditionExpression = optional(compiled.Condition)
		input.ExpressionAttributeNames = compiled.Names
		input.ExpressionAttributeValues = compiled.Values
		c.log.Debug().
			Str("request_id", uuid.NewString()).
			Str("table", p.meta.TableName()).
			Object("expression", compiled.LogView()).
			Msg("conditional put")
	}
	if _, err := c.awsddb.PutItem(ctx, input); err != nil {
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (c *Client) buildItem(ctx context.Context, meta *entity.Metadata, values map[string]any) (Item, error) {
	for name := range values {
		if _, ok := meta.Property(name); !ok {
			return nil, fmt.Errorf("unknown property %q on entity %q", name, meta.TableName())
		}
	}
	item := make(Item, len(values))
	for _, p := range meta.Properties() {
		v, ok := values[p.Name]
		if !ok {
			continue
		}
		if p.Encrypted {
			av, err := c.encryptValue(ctx, &p, v)
			if err != nil {
				return nil, err
			}
			item[p.Attribute] = av
			continue
		}
		av, err := compiler.Coerce(&p, v)
		if err != nil {
			return nil, err
		}
		item[p.Attribute] = av
	}
	if err := applyDiscriminator(meta.Discriminator(), item); err != nil {
		return nil, err
	}
	return item, nil
}

func (c *Client) encryptValue(ctx context.Context, p *entity.Property, v any) (types.AttributeValue, error) {
	if c.enc == nil {
		return nil, fmt.Errorf("%w: property %q requires encryption", compiler.ErrMissingEncryptionProvider, p.Name)
	}
	var plaintext []byte
	switch val := v.(type) {
	case string:
		plaintext = []byte(val)
	case []byte:
		plaintext = val
	default:
		return nil, fmt.Errorf("%w: encrypted property %q requires string or []byte, got %T", compiler.ErrTypeMismatch, p.Name, v)
	}
	ciphertext, err := c.enc.Encrypt(ctx, plaintext, p.Name, map[string]string{"attribute": p.Attribute})
	if err != nil {
		return nil, fmt.Errorf("encrypt %q: %w", p.Name, err)
	}
	return &types.AttributeValueMemberB{Value: ciphertext}, nil
}

// applyDiscriminator stamps an exact-match discriminator onto the item
// and checks pattern-based ones against what the caller wrote.
func applyDiscriminator(d *entity.Discriminator, item Item) error {
	if d == nil {
		return nil
	}
	existing, present := item[d.Attribute()]
	if d.Strategy() == entity.MatchExact {
		if !present {
			item[d.Attribute()] = &types.AttributeValueMemberS{Value: d.Text()}
			return nil
		}
	}
	if !present {
		return fmt.Errorf("discriminator attribute %q is not set on the item", d.Attribute())
	}
	s, ok := existing.(*types.AttributeValueMemberS)
	if !ok {
		return fmt.Errorf("discriminator attribute %q must be a string, got %T", d.Attribute(), existing)
	}
	if !d.Matches(s.Value) {
		return fmt.Errorf("value %q of attribute %q does not match discriminator %q", s.Value, d.Attribute(), d.Pattern())
	}
	return nil
}

// UpdateItem builds and sends an update. Deferred encryption is
// resolved first; an encrypted target with no provider configured
// fails the whole update before any network call.
func (c *Client) UpdateItem(ctx context.Context, key Key, u *compiler.Update) error {
	compiled, err := u.Build()
	if err != nil {
		return err
	}
	if err := compiled.ResolveEncryption(ctx, c.enc); err != nil {
		return err
	}
	keyAttrs, err := key.DDB()
	if err != nil {
		return err
	}
	c.log.Debug().
		Str("request_id", uuid.NewString()).
		Str("table", key.meta.TableName()).
		Object("expression", compiled.LogView()).
		Msg("update")

	_, err = c.awsddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 ptr(key.meta.TableName()),
		Key:                       keyAttrs,
		UpdateExpression:          optional(compiled.Update),
		ConditionExpression:       optional(compiled.Condition),
		ExpressionAttributeNames:  compiled.Names,
		ExpressionAttributeValues: compiled.Values,
	})
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

// DeleteItem removes an item, optionally guarded by conditions.
func (c *Client) DeleteItem(ctx context.Context, key Key, conds ...predicate.Node) error {
	keyAttrs, err := key.DDB()
	if err != nil {
		return err
	}
	input := &dynamodb.DeleteItemInput{
		TableName: ptr(key.meta.TableName()),
		Key:       keyAttrs,
	}
	if len(conds) > 0 {
		cc := compiler.New(key.meta)
		for _, cond := range conds {
			cc = cc.Where(cond)
		}
		compiled, err := cc.Build()
		if err != nil {
			return err
		}
		input.ConditionExpression = optional(compiled.Condition)
		input.ExpressionAttributeNames = compiled.Names
		input.ExpressionAttributeValues = compiled.Values
	}
	if _, err := c.awsddb.DeleteItem(ctx, input); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// GetItem retrieves one item by primary key.
func (c *Client) GetItem(ctx context.Context, key Key, projection ...string) (Item, error) {
	keyAttrs, err := key.DDB()
	if err != nil {
		return nil, err
	}
	input := &dynamodb.GetItemInput{
		TableName:      ptr(key.meta.TableName()),
		Key:            keyAttrs,
		ConsistentRead: ptr(true),
	}
	if len(projection) > 0 {
		compiled, err := compiler.New(key.meta).Projection(projection...).Build()
		if err != nil {
			return nil, err
		}
		input.ProjectionExpression = optional(compiled.Projection)
		input.ExpressionAttributeNames = compiled.Names
	}
	res, err := c.awsddb.GetItem(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return res.Item, nil
}
