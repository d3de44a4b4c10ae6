package config

import (
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
)

type MongoConfig struct {
	URI         string `json:"uri"`
	Database    string `json:"database"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	MaxPoolSize uint64 `json:"maxPoolSize"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"poolSize"`
}

type NatsConfig struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

type PushConfig struct {
	Shards        int `json:"shards"`
	QueueSize     int `json:"queueSize"`
	SendQueueSize int `json:"sendQueueSize"`
}

type AppConfig struct {
	NodeID    string      `json:"nodeId"`
	SnowNode  int64       `json:"snowNode"`
	Port      int         `json:"port"`
	JWTSecret string      `json:"jwtSecret"`
	Mongo     MongoConfig `json:"mongo"`
	Redis     RedisConfig `json:"redis"`
	Nats      NatsConfig  `json:"nats"`
	Push      PushConfig  `json:"push"`
}

func Default() AppConfig {
	return AppConfig{
		NodeID:   "gateway-1",
		SnowNode: 1,
		Port:     8080,
		Push: PushConfig{
			Shards:        8,
			QueueSize:     256,
			SendQueueSize: 64,
		},
	}
}

// envOverrides maps config paths to environment variables. Empty variables
// leave the default untouched; Mongo/Redis/Nats stay unset for pure
// in-memory single-node runs.
var envOverrides = map[string]string{
	"nodeId":         "REALTOR_NODE_ID",
	"snowNode":       "REALTOR_SNOW_NODE",
	"port":           "REALTOR_PORT",
	"jwtSecret":      "REALTOR_JWT_SECRET",
	"mongo.uri":      "REALTOR_MONGO_URI",
	"mongo.database": "REALTOR_MONGO_DB",
	"mongo.username": "REALTOR_MONGO_USER",
	"mongo.password": "REALTOR_MONGO_PASS",
	"redis.addr":     "REALTOR_REDIS_ADDR",
	"redis.password": "REALTOR_REDIS_PASS",
	"nats.url":       "REALTOR_NATS_URL",
	"nats.subject":   "REALTOR_NATS_SUBJECT",
}

// Load builds the runtime config: defaults overlaid with environment
// variables, decoded weakly so numeric envs arrive as strings.
func Load() (*AppConfig, error) {
	cfg := Default()

	overlay := map[string]interface{}{}
	for path, env := range envOverrides {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		setPath(overlay, path, v)
	}
	if len(overlay) == 0 {
		return &cfg, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(overlay); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setPath(m map[string]interface{}, path, value string) {
	for {
		i := strings.IndexByte(path, '.')
		if i < 0 {
			m[path] = value
			return
		}
		head := path[:i]
		sub, ok := m[head].(map[string]interface{})
		if !ok {
			sub = map[string]interface{}{}
			m[head] = sub
		}
		m = sub
		path = path[i+1:]
	}
}
