package backends

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/consul/api"
	"github.com/tidewatch/tidewatch"
	"github.com/tidewatch/tidewatch/log"
)

// ConsulConfig configures a Consul KV persistence backend.
type ConsulConfig struct {
	Address string
	Token   string

	// Prefix roots the logical key space inside the Consul KV tree.
	Prefix string
}

// Consul stores values in the Consul KV tree under <prefix>/<key>. A single
// KV put is atomic on the Consul side, which covers the no-partial-value
// guarantee; ordering between racing writers to one key is last-write-wins,
// same as the filesystem backend.
type Consul struct {
	kv     *api.KV
	prefix string

	log       *log.Logger
	telemetry *tidewatch.Telemetry
}

func NewConsul(cfg ConsulConfig, opts ...Option) (*Consul, error) {
	options := newDefaultOptions()
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}

	clientConfig := api.DefaultConfig()
	if cfg.Address != "" {
		clientConfig.Address = cfg.Address
	}
	if cfg.Token != "" {
		clientConfig.Token = cfg.Token
	}

	client, err := api.NewClient(clientConfig)
	if err != nil {
		return nil, err
	}

	return &Consul{
		kv:        client.KV(),
		prefix:    strings.Trim(cfg.Prefix, "/"),
		log:       options.Logger,
		telemetry: options.Telemetry,
	}, nil
}

func (b *Consul) ListKeys(ctx context.Context) ([]string, error) {
	prefix := b.prefix
	if prefix != "" {
		prefix += "/"
	}

	listed, _, err := b.kv.Keys(prefix, "", (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(listed))
	for _, key := range listed {
		keys = append(keys, strings.TrimPrefix(key, prefix))
	}
	return keys, nil
}

func (b *Consul) Get(ctx context.Context, key string) ([]byte, error) {
	pair, _, err := b.kv.Get(b.buildKey(key), (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
	}
	return pair.Value, nil
}

func (b *Consul) Put(ctx context.Context, key string, value []byte) tidewatch.PutFuture {
	future, resolve := tidewatch.Promise()

	pair := &api.KVPair{
		Key:   b.buildKey(key),
		Value: value,
	}

	go func() {
		_, err := b.kv.Put(pair, (&api.WriteOptions{}).WithContext(ctx))
		if err != nil {
			b.log.Error("put %s: %v", key, err)
		}
		b.telemetry.PutCompleted("consul", err)
		resolve(err)
	}()

	return future
}

func (b *Consul) Remove(ctx context.Context, key string) error {
	consulKey := b.buildKey(key)

	pair, _, err := b.kv.Get(consulKey, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("%w: %s", tidewatch.ErrNotExist, key)
	}

	_, err = b.kv.Delete(consulKey, (&api.WriteOptions{}).WithContext(ctx))
	return err
}

func (b *Consul) buildKey(key string) string {
	return path.Join(b.prefix, key)
}
