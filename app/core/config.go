package core

import (
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/medqa-ai/medqa/pkg/ai"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	conf.SetConfigBytes(raw)

	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	return *conf
}

func (c CoreConfig) LoadCustomConfig(cfg any) error {
	if len(c.bytes) == 0 {
		return nil
	}
	if err := toml.Unmarshal(c.bytes, cfg); err != nil {
		return err
	}
	return nil
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr string `toml:"addr"`
	Log  Log    `toml:"log"`

	AI        AIConfig        `toml:"ai"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Sanitize  SanitizeConfig  `toml:"sanitize"`

	bytes []byte `toml:"-"`
}

func (c *CoreConfig) SetConfigBytes(raw []byte) {
	c.bytes = raw
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("MEDQA_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.AI.FromENV()
	c.Retrieval.FromENV()
	c.Sanitize.FromENV()
}

type AIConfig struct {
	Token    string       `toml:"token"`
	Endpoint string       `toml:"endpoint"`
	Model    ai.ModelName `toml:"model"`
}

func (c *AIConfig) FromENV() {
	c.Token = os.Getenv("MEDQA_AI_TOKEN")
	c.Endpoint = os.Getenv("MEDQA_AI_ENDPOINT")
	c.Model.ChatModel = os.Getenv("MEDQA_AI_CHAT_MODEL")
	c.Model.EmbeddingModel = os.Getenv("MEDQA_AI_EMBEDDING_MODEL")
}

type RetrievalConfig struct {
	CorpusPath  string `toml:"corpus_path"` // 本地问答语料 json 文件
	IndexDir    string `toml:"index_dir"`   // 向量索引所在目录
	WebEndpoint string `toml:"web_endpoint"`
	WebAPIKey   string `toml:"web_api_key"`
}

func (c *RetrievalConfig) FromENV() {
	c.CorpusPath = os.Getenv("MEDQA_CORPUS_PATH")
	c.IndexDir = os.Getenv("MEDQA_INDEX_DIR")
	c.WebEndpoint = os.Getenv("MEDQA_WEB_SEARCH_ENDPOINT")
	c.WebAPIKey = os.Getenv("MEDQA_WEB_SEARCH_API_KEY")
}

type SanitizeConfig struct {
	WordsPath string `toml:"words_path"` // 敏感词文件，为空则使用内置词表
}

func (c *SanitizeConfig) FromENV() {
	c.WordsPath = os.Getenv("MEDQA_SENSITIVE_WORDS_PATH")
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("MEDQA_LOG_LEVEL")
	l.Path = os.Getenv("MEDQA_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
