// Пакет contract — проверка ответов внешнего API по встроенному
// OpenAPI-контракту (kin-openapi). Позволяет отличить «API ответил
// не тем» от сетевых ошибок: например, прокси вернул другую JSON-структуру.
package contract

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var contractYAML []byte

// Validator — валидатор тел ответов по именованным схемам из components.schemas.
type Validator struct {
	doc *openapi3.T
}

// Load разбирает и валидирует встроенный контракт.
func Load(ctx context.Context) (*Validator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(contractYAML)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI-контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI-контракта: %w", err)
	}
	return &Validator{doc: doc}, nil
}

// Validate проверяет JSON-тело на соответствие схеме schema.
// Неизвестное имя схемы — ошибка конфигурации, а не ответа.
func (v *Validator) Validate(schema string, body []byte) error {
	ref, ok := v.doc.Components.Schemas[schema]
	if !ok || ref == nil || ref.Value == nil {
		return fmt.Errorf("схема %q не найдена в контракте", schema)
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("разбор JSON: %w", err)
	}

	if err := ref.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("ответ не соответствует схеме %s: %w", schema, err)
	}
	return nil
}

// Schemas возвращает имена всех схем контракта.
func (v *Validator) Schemas() []string {
	names := make([]string, 0, len(v.doc.Components.Schemas))
	for name := range v.doc.Components.Schemas {
		names = append(names, name)
	}
	return names
}
