package core

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupConfigFromEnv(t *testing.T) {
	addr := "localhost:11111"
	os.Setenv("MEDQA_SERVICE_ADDRESS", addr)
	os.Setenv("MEDQA_AI_CHAT_MODEL", "deepseek-chat")

	cfg := LoadBaseConfigFromENV()

	assert.Equal(t, cfg.Addr, addr)
	assert.Equal(t, "deepseek-chat", cfg.AI.Model.ChatModel)
}

func TestLoadBaseConfigFromFile(t *testing.T) {
	raw := []byte(`
addr = "0.0.0.0:30001"

[log]
level = "info"

[ai]
token = "sk-test"
endpoint = "https://api.deepseek.com/v1"

[ai.model]
chat_model = "deepseek-chat"
embedding_model = "text-embedding-3-small"

[retrieval]
corpus_path = "data/contexts.json"
index_dir = "data"
`)
	f, err := os.CreateTemp(t.TempDir(), "config-*.toml")
	assert.NoError(t, err)
	_, err = f.Write(raw)
	assert.NoError(t, err)
	f.Close()

	cfg := MustLoadBaseConfig(f.Name())
	assert.Equal(t, "0.0.0.0:30001", cfg.Addr)
	assert.Equal(t, "deepseek-chat", cfg.AI.Model.ChatModel)
	assert.Equal(t, "data/contexts.json", cfg.Retrieval.CorpusPath)
}
