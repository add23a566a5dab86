package srv

import (
	"github.com/medqa-ai/medqa/pkg/ai"
	"github.com/medqa-ai/medqa/pkg/retrieval"
	"github.com/medqa-ai/medqa/pkg/sanitize"
)

type Srv struct {
	ai        *AI
	online    retrieval.Retriever
	offline   retrieval.Retriever
	sanitizer *sanitize.Sanitizer
}

type ApplyFunc func(*Srv)

func SetupSrvs(opts ...ApplyFunc) *Srv {
	a := &Srv{}

	for _, opt := range opts {
		opt(a)
	}
	return a
}

func ApplyAI(chat ai.Chat, embedder ai.Embedder) ApplyFunc {
	return func(s *Srv) {
		s.ai = &AI{chat: chat, embedder: embedder}
	}
}

func ApplyRetrievers(online, offline retrieval.Retriever) ApplyFunc {
	return func(s *Srv) {
		s.online = online
		s.offline = offline
	}
}

func ApplySanitizer(sanitizer *sanitize.Sanitizer) ApplyFunc {
	return func(s *Srv) {
		s.sanitizer = sanitizer
	}
}

func (s *Srv) AI() *AI {
	return s.ai
}

func (s *Srv) OnlineRetriever() retrieval.Retriever {
	return s.online
}

func (s *Srv) OfflineRetriever() retrieval.Retriever {
	return s.offline
}

func (s *Srv) Sanitizer() *sanitize.Sanitizer {
	return s.sanitizer
}
