package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Фабрики значений по умолчанию, доступные из DSL по имени (default_factory=ulid).
var factories = map[string]func() any{
	"ulid": func() any { return ulid.Make().String() },
	"uuid": func() any { return uuid.NewString() },
	"now":  func() any { return time.Now().UTC() },
}

func Factory(name string) (func() any, error) {
	f, ok := factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown default factory %q (allowed: ulid|uuid|now)", name)
	}
	return f, nil
}
