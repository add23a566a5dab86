package answer

import (
	"encoding/json"
	"log/slog"

	"github.com/go-playground/validator/v10"
)

// PossibleCause 可疑病因条目，三个字段都不允许为空
type PossibleCause struct {
	Name   string `json:"name" validate:"required"`
	Reason string `json:"reason" validate:"required"`
	Test   string `json:"test" validate:"required"`
}

// StructuredAnswer 模型被要求输出的固定 schema。
// risk_level 是自由字符串，渲染时查色表，未知值用默认图标
type StructuredAnswer struct {
	DirectReply           string          `json:"direct_reply"`
	Answer                string          `json:"answer"`
	Suggestion            string          `json:"suggestion"`
	RiskLevel             string          `json:"risk_level"`
	Confidence            float64         `json:"confidence" validate:"gte=0,lte=1"`
	ConsultUrgency        string          `json:"consult_urgency"`
	PossibleCauses        []PossibleCause `json:"possible_causes" validate:"omitempty,dive"`
	RecommendedDepartment string          `json:"recommended_department"`
}

var requiredFields = []string{
	"direct_reply",
	"answer",
	"suggestion",
	"risk_level",
	"confidence",
	"consult_urgency",
	"possible_causes",
	"recommended_department",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate 修复后解析并做 schema 校验。调用方只拿到通过与否，
// 渲染方会基于原文重新走一遍相同的修复逻辑
func Validate(raw string) bool {
	cleaned := RepairJSONText(raw)

	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		slog.Debug("validate: not a json object", slog.String("error", err.Error()))
		return false
	}
	for _, field := range requiredFields {
		if _, ok := probe[field]; !ok {
			slog.Debug("validate: missing field", slog.String("field", field))
			return false
		}
	}

	var ans StructuredAnswer
	if err := json.Unmarshal([]byte(cleaned), &ans); err != nil {
		slog.Debug("validate: field type mismatch", slog.String("error", err.Error()))
		return false
	}
	if err := validate.Struct(ans); err != nil {
		slog.Debug("validate: schema check failed", slog.String("error", err.Error()))
		return false
	}
	return true
}
