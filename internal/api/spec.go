// Пакет api — контракт REST API Metastore.
// openapi.yaml встраивается в бинарь и используется middleware
// валидации запросов.
package api

import _ "embed"

// Spec — встроенный OpenAPI-документ API.
//
//go:embed openapi.yaml
var Spec []byte
