package i18n

var ALLOW_LANG = map[string]bool{
	"en":    true,
	"zh-CN": true,
}

const DEFAULT_LANG = "zh-CN"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"

	ERROR_MODEL_UNAVAILABLE     = "error.model.unavailable"
	ERROR_RETRIEVAL_UNAVAILABLE = "error.retrieval.unavailable"
)
