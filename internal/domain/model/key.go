// key.go — типизированный ключ ресурса.
// Клиенты могут указывать сущность либо по UUID, либо по site_id.
// Вместо разбора строки в каждом месте использования, строка разбирается
// один раз в ResourceKey, а репозитории принимают готовый ключ.
package model

import "github.com/google/uuid"

// KeyKind — вид ключа ресурса.
type KeyKind int

const (
	// KeyUUID — ключ является UUID
	KeyUUID KeyKind = iota
	// KeySiteID — ключ является человекочитаемым site_id
	KeySiteID
)

// ResourceKey — размеченное объединение {UUID, site_id}.
type ResourceKey struct {
	// Kind — вид ключа
	Kind KeyKind
	// UUID — значение для Kind == KeyUUID
	UUID uuid.UUID
	// SiteID — значение для Kind == KeySiteID
	SiteID string
}

// ParseResourceKey разбирает строку идентификатора в ResourceKey.
// Строка, являющаяся корректным UUID, трактуется как UUID,
// любая другая — как site_id.
func ParseResourceKey(s string) ResourceKey {
	if id, err := uuid.Parse(s); err == nil {
		return ResourceKey{Kind: KeyUUID, UUID: id}
	}
	return ResourceKey{Kind: KeySiteID, SiteID: s}
}

// String возвращает строковое представление ключа.
func (k ResourceKey) String() string {
	if k.Kind == KeyUUID {
		return k.UUID.String()
	}
	return k.SiteID
}
