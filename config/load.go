package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/multierr"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "EXITMARKER_"

// Load 从默认配置出发，依次叠加 YAML 文件与环境变量
//
// 优先级：环境变量 > 文件 > 默认值。path 为空时跳过文件。
// 环境变量名为 EXITMARKER_ 加上大写的键路径，点替换为下划线，
// 例如 storage.data_dir 对应 EXITMARKER_STORAGE_DATA_DIR。
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	cfg := NewConfig()
	l := &loader{k: k}

	l.str("protocol.version", &cfg.Protocol.Version)
	l.boolean("protocol.verbose_errors", &cfg.Protocol.VerboseErrors)
	l.duration("protocol.max_clock_skew", &cfg.Protocol.MaxClockSkew)

	l.str("storage.data_dir", &cfg.Storage.DataDir)
	l.boolean("storage.sync_writes", &cfg.Storage.SyncWrites)
	l.duration("storage.gc_interval", &cfg.Storage.GCInterval)

	l.integer("key_state.cache_size", &cfg.KeyState.CacheSize)

	l.integer("merkle.workers", &cfg.Merkle.Workers)
	l.integer("merkle.max_batch_size", &cfg.Merkle.MaxBatchSize)

	l.duration("dispute.default_expiry", &cfg.Dispute.DefaultExpiry)

	l.str("keystore.dir", &cfg.Keystore.Dir)
	l.str("keystore.password_env", &cfg.Keystore.PasswordEnv)

	l.str("log.level", &cfg.Log.Level)
	l.str("log.format", &cfg.Log.Format)

	l.boolean("metrics.enabled", &cfg.Metrics.Enabled)
	l.str("metrics.namespace", &cfg.Metrics.Namespace)

	if l.err != nil {
		return nil, l.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EnvKey 返回键路径对应的环境变量名
func EnvKey(path string) string {
	b := []byte(EnvPrefix)
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c == '.':
			c = '_'
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		b = append(b, c)
	}
	return string(b)
}

// loader 逐项读取，收集全部解析错误
type loader struct {
	k   *koanf.Koanf
	err error
}

func (l *loader) env(path string) (string, bool) {
	v, ok := os.LookupEnv(EnvKey(path))
	return v, ok && v != ""
}

func (l *loader) str(path string, dst *string) {
	if v, ok := l.env(path); ok {
		*dst = v
		return
	}
	if l.k.Exists(path) {
		*dst = l.k.String(path)
	}
}

func (l *loader) boolean(path string, dst *bool) {
	if v, ok := l.env(path); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			l.err = multierr.Append(l.err, fmt.Errorf("%s: invalid bool %q", EnvKey(path), v))
			return
		}
		*dst = b
		return
	}
	if l.k.Exists(path) {
		*dst = l.k.Bool(path)
	}
}

func (l *loader) integer(path string, dst *int) {
	if v, ok := l.env(path); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			l.err = multierr.Append(l.err, fmt.Errorf("%s: invalid integer %q", EnvKey(path), v))
			return
		}
		*dst = n
		return
	}
	if l.k.Exists(path) {
		*dst = l.k.Int(path)
	}
}

func (l *loader) duration(path string, dst *Duration) {
	raw, fromEnv := l.env(path)
	if !fromEnv {
		if !l.k.Exists(path) {
			return
		}
		raw = l.k.String(path)
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		l.err = multierr.Append(l.err, fmt.Errorf("%s: invalid duration %q", path, raw))
		return
	}
	*dst = Duration(d)
}
